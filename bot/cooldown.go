package bot

import (
	"sync"
	"time"
)

// cooldownGate rate limits commands per user.
type cooldownGate struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func newCooldownGate() *cooldownGate {
	return &cooldownGate{last: make(map[string]time.Time), now: time.Now}
}

// check returns the remaining cooldown, or zero when the command may
// run. An allowed call starts a new cooldown window.
func (g *cooldownGate) check(command, userID string, d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := command + ":" + userID
	now := g.now()
	if last, ok := g.last[key]; ok {
		if remaining := d - now.Sub(last); remaining > 0 {
			return remaining
		}
	}
	g.last[key] = now
	return 0
}
