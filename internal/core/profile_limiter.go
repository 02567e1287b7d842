package core

// profile_limiter.go bounds how many country profiles are built at once.
//
// A profile fans out to every profile indicator and then to the LLM, so an
// unbounded number of them can exhaust upstream quotas quickly. Requests
// queue for up to maxWait and then fail with ErrTooManyProfiles.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyProfiles is returned when no profile slot frees up in time.
var ErrTooManyProfiles = errors.New("too many concurrent profiles")

const (
	defaultMaxProfiles    = 2
	defaultProfileMaxWait = 30 * time.Second
)

// ProfileLimiter is a counting semaphore around profile generation.
type ProfileLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewProfileLimiter allows maxConcurrent profiles; non-positive arguments
// fall back to the defaults.
func NewProfileLimiter(maxConcurrent int, maxWait time.Duration) *ProfileLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxProfiles
	}
	if maxWait <= 0 {
		maxWait = defaultProfileMaxWait
	}
	return &ProfileLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. Callers must Release it when done.
func (l *ProfileLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyProfiles
	}
}

// Release frees a slot taken by Acquire.
func (l *ProfileLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// LimiterStatus is a snapshot of limiter occupancy.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current occupancy.
func (l *ProfileLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no profile is in flight or ctx is done.
func (l *ProfileLimiter) WaitForDrain(ctx context.Context) error {
	if l.active.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.active.Load() == 0 {
				return nil
			}
		}
	}
}
