// Package ratelimit implements a fixed-window request counter with pluggable storage.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store counts hits per key inside a window that starts with the first hit.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetIn   time.Duration
}

// ResetSeconds rounds the time left in the window up to whole seconds, never below one.
func (r Result) ResetSeconds() int64 {
	secs := int64((r.ResetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type Limiter struct {
	store  Store
	max    int64
	window time.Duration
}

func New(store Store, max int64, window time.Duration) *Limiter {
	return &Limiter{store: store, max: max, window: window}
}

func (l *Limiter) Limit() int64 { return l.max }

func (l *Limiter) Window() time.Duration { return l.window }

// Policy renders the limit in the RateLimit-Policy header form, e.g. "100;w=900".
func (l *Limiter) Policy() string {
	return fmt.Sprintf("%d;w=%d", l.max, int64(l.window/time.Second))
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, resetIn, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit increment: %w", err)
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}
