// Package ratelimit paces outbound requests so the crawl stays polite.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces a delay before every request: each Wait blocks for a
// uniformly random interval in [MinDelay, MaxDelay]. Request and error
// counts are tracked for session reporting.
type Pacer struct {
	mu           sync.Mutex
	minDelay     time.Duration
	maxDelay     time.Duration
	lastRequest  time.Time
	requestCount int64
	errorCount   int64
}

// NewPacer builds a Pacer with the given delay bounds. A max below min
// is clamped to min.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait blocks for the jittered delay, returning early with the context
// error if ctx is cancelled. The delay is mandatory even for the first
// request.
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.minDelay
	if span := p.maxDelay - p.minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	p.lastRequest = time.Now()
	p.requestCount++
	p.mu.Unlock()
	return nil
}

// RecordError counts a failed request.
func (p *Pacer) RecordError() {
	p.mu.Lock()
	p.errorCount++
	p.mu.Unlock()
}

// Stats reports the session's request totals.
func (p *Pacer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		RequestCount:    p.requestCount,
		ErrorCount:      p.errorCount,
		LastRequestTime: p.lastRequest,
	}
}

// Stats summarizes a Pacer's activity.
type Stats struct {
	RequestCount    int64     `json:"request_count"`
	ErrorCount      int64     `json:"error_count"`
	LastRequestTime time.Time `json:"last_request_time"`
}
