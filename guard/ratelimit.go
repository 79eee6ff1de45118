// Package guard gates outbound model calls. Its only policy today is a
// per-sender minimum interval between accepted requests.
package guard

import (
	"sync"
	"time"
)

const DefaultMinInterval = 2 * time.Second

type Config struct {
	MinInterval time.Duration
}

// Decision is the outcome of a rate check. RetryAfter is only meaningful
// when Allowed is false and is rounded up to whole seconds so it can be
// surfaced verbatim in a user reply.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateGate tracks the last accepted request per sender. The check and the
// state advance happen under one lock so two rapid requests from the same
// sender cannot both pass the gate; state advances at acceptance time, not
// when the upstream call completes.
type RateGate struct {
	mu           sync.Mutex
	minInterval  time.Duration
	lastAccepted map[string]time.Time

	// Now is the clock source; tests override it.
	Now func() time.Time
}

func NewRateGate(cfg Config) *RateGate {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	return &RateGate{
		minInterval:  cfg.MinInterval,
		lastAccepted: make(map[string]time.Time),
		Now:          time.Now,
	}
}

// Check admits or rejects a request from senderKey. A sender with no
// recorded acceptance is always admitted. On rejection the recorded state is
// left untouched.
func (g *RateGate) Check(senderKey string) Decision {
	if g == nil {
		return Decision{Allowed: true}
	}
	now := g.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	last, seen := g.lastAccepted[senderKey]
	if seen {
		elapsed := now.Sub(last)
		if elapsed < g.minInterval {
			return Decision{RetryAfter: ceilSeconds(g.minInterval - elapsed)}
		}
	}
	g.lastAccepted[senderKey] = now
	return Decision{Allowed: true}
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
