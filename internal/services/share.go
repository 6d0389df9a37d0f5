package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"clinicnotes/internal/config"
)

var (
	ErrLinkExpired      = errors.New("link expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

func SignURL(path string, expiresAt int64, secret string) string {
	signature := computeSignature(path, expiresAt, secret)
	return fmt.Sprintf("%s?exp=%d&sig=%s", path, expiresAt, signature)
}

func ValidateSignature(path string, expiresAt int64, signature, secret string) bool {
	expected := computeSignature(path, expiresAt, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SharePath is the public, unauthenticated location of a summary's PDF.
func SharePath(summaryID string) string {
	return fmt.Sprintf("/share/summaries/%s/pdf", summaryID)
}

type ShareLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareService issues expiring HMAC-signed links to summary PDFs.
type ShareService struct {
	secret  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewShareService(cfg config.Config) *ShareService {
	return &ShareService{
		secret:  cfg.ShareSecret,
		baseURL: cfg.BaseURL,
		ttl:     cfg.ShareTTL,
		now:     time.Now,
	}
}

func (s *ShareService) Generate(summaryID string) ShareLink {
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	signedPath := SignURL(SharePath(summaryID), expiresAt.Unix(), s.secret)
	return ShareLink{URL: s.baseURL + signedPath, ExpiresAt: expiresAt}
}

// Verify checks expiry before the signature so stale links report as expired.
func (s *ShareService) Verify(path string, expires int64, signature string) error {
	if expires < s.now().Unix() {
		return ErrLinkExpired
	}
	if !ValidateSignature(path, expires, signature, s.secret) {
		return ErrInvalidSignature
	}
	return nil
}

func computeSignature(path string, expiresAt int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("%s:%d", path, expiresAt)))
	sig := h.Sum(nil)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sig)
}
