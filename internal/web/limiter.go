package web

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errBusy is returned when no session slot frees up within the wait time.
var errBusy = errors.New("too many concurrent reports, please try again later")

// sessionLimiter bounds how many requests hold a database session at once.
type sessionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

// LimiterStatus is a snapshot for the health endpoint.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Max       int `json:"max"`
}

func newSessionLimiter(max int, maxWait time.Duration) *sessionLimiter {
	if max <= 0 {
		max = 1
	}
	return &sessionLimiter{
		slots:   make(chan struct{}, max),
		maxWait: maxWait,
	}
}

// acquire takes a slot, waiting at most maxWait. The caller must release
// it exactly once.
func (l *sessionLimiter) acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return nil
	default:
	}
	if l.maxWait <= 0 {
		return errBusy
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return nil
	case <-timer.C:
		return errBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *sessionLimiter) release() {
	l.track(-1)
	<-l.slots
}

func (l *sessionLimiter) track(delta int) {
	l.mu.Lock()
	l.active += delta
	l.mu.Unlock()
}

func (l *sessionLimiter) status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStatus{
		Active:    l.active,
		Available: cap(l.slots) - len(l.slots),
		Max:       cap(l.slots),
	}
}
