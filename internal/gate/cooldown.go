package gate

import (
	"sync"
	"time"
)

// CooldownGate limits how often a single actor may run a gated command. A zero
// or negative cooldown disables gating entirely.
type CooldownGate struct {
	mutex   sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewCooldownGate() *CooldownGate {
	return &CooldownGate{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// TryAcquire reports whether the actor may proceed. On success the actor's
// next allowed time moves forward by cooldown; on rejection state is left
// untouched.
func (g *CooldownGate) TryAcquire(actorID string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := g.now()
	nextAllowedAt, ok := g.entries[actorID]
	if ok && now.Before(nextAllowedAt) {
		return false
	}
	g.entries[actorID] = now.Add(cooldown)
	return true
}
