package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer gates outbound work. Wait blocks until the next unit may start or
// the context is canceled.
type Pacer interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum time between successive Wait returns.
// The first call never blocks.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval > 0 {
		m.mu.Lock()
		var wait time.Duration
		if !m.last.IsZero() {
			wait = time.Until(m.last.Add(m.Interval))
		}
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
	return nil
}

// None never blocks.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }
