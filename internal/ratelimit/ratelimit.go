package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of submissions a caller may make per window.
	DefaultLimit = 3

	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute
)

// Record is the per-caller counter for the current window.
type Record struct {
	Count       int
	WindowStart time.Time
}

// Options configures a Limiter. Zero values fall back to the defaults.
type Options struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// Limiter counts submissions per caller in fixed windows that start at the
// caller's first request. Records live in process memory only.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*Record
}

func New(opts Options) *Limiter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Limiter{
		limit:   opts.Limit,
		window:  opts.Window,
		now:     opts.Now,
		records: map[string]*Record{},
	}
}

// CheckAndRecord counts a request from id and reports whether it exceeds the
// limit. The record is updated whether or not the request is later accepted.
func (l *Limiter) CheckAndRecord(id string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok || now.Sub(rec.WindowStart) > l.window {
		l.records[id] = &Record{Count: 1, WindowStart: now}
		return false
	}

	rec.Count++
	return rec.Count > l.limit
}

// Sweep drops records whose window started more than two windows ago and
// returns how many were removed.
func (l *Limiter) Sweep() int {
	cutoff := 2 * l.window
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, rec := range l.records {
		if now.Sub(rec.WindowStart) > cutoff {
			delete(l.records, id)
			removed++
		}
	}
	return removed
}

// Run sweeps once per window until ctx is done. onSweep, if set, is called
// with the number of removed records after each sweep.
func (l *Limiter) Run(ctx context.Context, onSweep func(removed int)) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

// Len returns the number of tracked callers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Lookup returns a copy of the record for id.
func (l *Limiter) Lookup(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Window() time.Duration { return l.window }
