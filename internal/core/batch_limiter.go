package core

// batch_limiter.go bounds the number of batches reconciled at once.
//
// Each batch holds one slot of a buffered channel for its whole run. When
// every slot is taken a new batch waits up to maxWait, then fails with
// ErrTooManyBatches. A zero maxWait fails immediately. WaitForDrain lets shutdown wait for running batches.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyBatches is returned when all batch slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyBatches = errors.New("too many concurrent batches, please try again later")

const (
	// DefaultMaxConcurrentBatches is the default limit for parallel batches.
	DefaultMaxConcurrentBatches = 4
	// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
	DefaultMaxWaitTime = 30 * time.Second
)

// BatchLimiter controls concurrent batch processing with a semaphore.
type BatchLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewBatchLimiter allows at most maxConcurrent simultaneous batches.
// A non-positive maxConcurrent or a negative maxWait selects the default.
func NewBatchLimiter(maxConcurrent int, maxWait time.Duration) *BatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentBatches
	}
	if maxWait < 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &BatchLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait.
// The caller MUST call Release when the batch completes.
func (l *BatchLimiter) Acquire(ctx context.Context) error {
	if l.maxWait == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.TryAcquire() {
			return ErrTooManyBatches
		}
		return nil
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.taken()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyBatches
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *BatchLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.taken()
		return true
	default:
		return false
	}
}

func (l *BatchLimiter) taken() {
	l.active.Add(1)
	metricsSingleton().activeBatches.Inc()
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *BatchLimiter) Release() {
	l.active.Add(-1)
	metricsSingleton().activeBatches.Dec()
	<-l.slots
}

// ActiveCount returns the number of batches holding a slot.
func (l *BatchLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *BatchLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no batch holds a slot or ctx is done.
func (l *BatchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// BatchLimiterStatus is a snapshot of the limiter.
type BatchLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *BatchLimiter) Status() BatchLimiterStatus {
	return BatchLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
