// Package pool bounds the number of transcodes running at once so a burst
// of conversion requests cannot exhaust CPU or file handles.
package pool

import "context"

type Limiter struct {
	sem chan struct{}
}

func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{sem: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) Release() {
	<-l.sem
}
