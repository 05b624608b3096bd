// Package limiter bounds concurrent fetches and paces dispatch.
package limiter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/pitchside/harvester/internal/metrics"
)

// DefaultCap is used when the caller gives no concurrency cap.
const DefaultCap = 5

// Limiter admits at most cap fetches at once and spaces successive
// admissions by a fixed dispatch delay. Completion order is unconstrained;
// the limiter only shapes admission.
type Limiter struct {
	slots chan struct{}
	pacer *rate.Limiter
}

// New builds a Limiter with the given concurrency cap and inter-dispatch
// delay. A non-positive cap falls back to DefaultCap; a zero delay disables
// pacing.
func New(cap int, dispatchDelay time.Duration) *Limiter {
	if cap <= 0 {
		cap = DefaultCap
	}
	pace := rate.Inf
	if dispatchDelay > 0 {
		pace = rate.Every(dispatchDelay)
	}
	return &Limiter{
		slots: make(chan struct{}, cap),
		pacer: rate.NewLimiter(pace, 1),
	}
}

// Acquire blocks until a slot is free and the pacing delay has elapsed, or
// the context finishes. A successful Acquire must be paired with Release;
// callers that crash between the two should do so via defer so queued work
// keeps draining.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("limiter acquire: %w", ctx.Err())
	}
	if err := l.pacer.Wait(ctx); err != nil {
		<-l.slots
		return fmt.Errorf("limiter pace: %w", err)
	}
	metrics.ObserveDispatchDelay(time.Since(start))
	return nil
}

// Release frees a slot acquired with Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// InFlight reports how many slots are currently held.
func (l *Limiter) InFlight() int {
	return len(l.slots)
}

// Cap reports the configured concurrency cap.
func (l *Limiter) Cap() int {
	return cap(l.slots)
}
