// Command healthcheck probes a running server's /health endpoint and exits non-zero when
// it is not healthy. It is meant for container HEALTHCHECK directives.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func main() {
	defaultURL := fmt.Sprintf("http://127.0.0.1:%s/health", envOrDefault("PORT", "3000"))
	url := flag.String("url", defaultURL, "health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	if err := probe(resty.New(), *url, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func probe(client *resty.Client, url string, timeout time.Duration) error {
	var body healthResponse
	resp, err := client.SetTimeout(timeout).R().
		SetHeader("Accept", "application/json").
		SetResult(&body).
		Get(url)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode())
	}
	if body.Status != "ok" {
		return fmt.Errorf("unhealthy status %q", body.Status)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
