// Package ratelimit provides a per-key token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 30 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed gives every key its own limiter. Keys idle for longer than the TTL are
// pruned in the background.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New returns a limiter allowing rps requests per second per key with the
// given burst.
func New(rps float64, burst int) *Keyed {
	if burst < 1 {
		burst = 1
	}
	k := &Keyed{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     defaultIdleTTL,
		now:     time.Now,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go k.cleanup(k.ttl / 2)
	return k
}

// Allow reports whether a request for key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.limiter(key).Allow()
}

func (k *Keyed) limiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = k.now()
	return e.limiter
}

// Len reports how many keys are tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Prune drops keys idle for longer than the TTL.
func (k *Keyed) Prune() {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-k.ttl)
	for key, e := range k.entries {
		if e.lastSeen.Before(cutoff) {
			delete(k.entries, key)
		}
	}
}

// Stop ends background pruning and waits for it to exit.
func (k *Keyed) Stop() {
	k.stopOnce.Do(func() {
		close(k.done)
	})
	<-k.stopped
}

func (k *Keyed) cleanup(every time.Duration) {
	defer close(k.stopped)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.Prune()
		case <-k.done:
			return
		}
	}
}
