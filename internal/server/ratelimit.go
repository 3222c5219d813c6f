package server

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a session is edited faster than allowed.
var ErrRateLimited = errors.New("too many edits")

// editLimiter is a token bucket per session. A limit of rate.Inf disables it.
type editLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	bySession map[string]*rate.Limiter
}

func newEditLimiter(limit rate.Limit, burst int) *editLimiter {
	if burst < 1 {
		burst = 1
	}
	return &editLimiter{limit: limit, burst: burst, bySession: make(map[string]*rate.Limiter)}
}

func (l *editLimiter) allow(session string) error {
	if l.limit == rate.Inf {
		return nil
	}
	l.mu.Lock()
	lim, ok := l.bySession[session]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.bySession[session] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return ErrRateLimited
	}
	return nil
}

func (l *editLimiter) forget(session string) {
	l.mu.Lock()
	delete(l.bySession, session)
	l.mu.Unlock()
}
