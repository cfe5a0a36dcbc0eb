package backend

import (
	"sync"
	"time"
)

// RateLimitSnapshot is a point-in-time view of a limiter's remaining budget.
type RateLimitSnapshot struct {
	RequestsRemaining int       `json:"requests_remaining"`
	TokensRemaining   int       `json:"tokens_remaining"`
	ResetsAt          time.Time `json:"resets_at"`
}

// Exhausted reports whether no further request fits in the current window.
func (s RateLimitSnapshot) Exhausted() bool {
	return s.RequestsRemaining == 0 || s.TokensRemaining == 0
}

// Limiter tracks a backend's rolling-window request and token budget. One
// limiter is owned by exactly one adapter; concurrent invocations against
// the same adapter share it, so every update happens under the mutex.
//
// The window resets lazily: the first Reserve or Snapshot past the reset
// timestamp restores the full budget. Counters clamp at zero; a call whose
// usage exceeds the remaining token budget drains the window rather than
// going negative.
type Limiter struct {
	mu sync.Mutex

	requestsPerWindow int
	tokensPerWindow   int
	window            time.Duration

	requestsRemaining int
	tokensRemaining   int
	resetsAt          time.Time
	lastCall          time.Time

	now func() time.Time
}

func NewLimiter(d Descriptor) *Limiter {
	now := time.Now()

	return &Limiter{
		requestsPerWindow: d.RequestsPerWindow,
		tokensPerWindow:   d.TokensPerWindow,
		window:            d.Window,
		requestsRemaining: d.RequestsPerWindow,
		tokensRemaining:   d.TokensPerWindow,
		resetsAt:          now.Add(d.Window),
		now:               time.Now,
	}
}

// Reserve claims one request slot, failing fast with a rate-limit error
// carrying the retry-after duration when the window is exhausted. No network
// call may be issued without a successful reservation.
func (l *Limiter) Reserve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetLocked()

	if l.requestsRemaining == 0 || l.tokensRemaining == 0 {
		retryAfter := l.resetsAt.Sub(l.now())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return NewRateLimitError("rate limit window exhausted", retryAfter)
	}

	l.requestsRemaining--
	l.lastCall = l.now()

	return nil
}

// Commit records the token usage of a completed call, clamping at zero.
func (l *Limiter) Commit(inputTokens, outputTokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokensRemaining -= inputTokens + outputTokens
	if l.tokensRemaining < 0 {
		l.tokensRemaining = 0
	}
}

// Snapshot returns the current remaining budget.
func (l *Limiter) Snapshot() RateLimitSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetLocked()

	return RateLimitSnapshot{
		RequestsRemaining: l.requestsRemaining,
		TokensRemaining:   l.tokensRemaining,
		ResetsAt:          l.resetsAt,
	}
}

func (l *Limiter) resetLocked() {
	if l.now().Before(l.resetsAt) {
		return
	}

	l.requestsRemaining = l.requestsPerWindow
	l.tokensRemaining = l.tokensPerWindow
	l.resetsAt = l.now().Add(l.window)
}
