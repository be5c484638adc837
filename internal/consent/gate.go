// Package consent gates outbound tracking behind the user's cookie decision.
package consent

import (
	"context"
	"sync"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

// State is the tri-state consent value. Only an explicit accept permits
// outbound delivery; unset and rejected both read as no consent.
type State string

const (
	StateUnset    State = "unset"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// KV is the persistence surface the gate needs. Satisfied by pkg/redis.Client.
type KV interface {
	Fetch(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Gate holds the persisted consent flag. Persistence is best-effort; the
// in-memory state is authoritative for the running process.
type Gate struct {
	kv   KV
	key  string
	logg *logger.Logger

	mu     sync.Mutex
	state  State
	loaded bool
}

// NewGate builds a consent gate over the given key/value backend.
// A nil KV keeps the flag purely in memory.
func NewGate(kv KV, key string, logg *logger.Logger) *Gate {
	return &Gate{kv: kv, key: key, logg: logg, state: StateUnset}
}

// SetConsent records the user's decision. No transition is terminal.
func (g *Gate) SetConsent(ctx context.Context, accepted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded = true
	if accepted {
		g.state = StateAccepted
	} else {
		g.state = StateRejected
	}
	if g.kv == nil {
		return
	}
	if err := g.kv.Set(ctx, g.key, string(g.state), 0); err != nil && g.logg != nil {
		g.logg.Debug(ctx, "consent persist failed")
	}
}

// HasConsent is true only when the user explicitly accepted.
func (g *Gate) HasConsent(ctx context.Context) bool {
	return g.State(ctx) == StateAccepted
}

// State returns the current consent value, loading the persisted flag once.
func (g *Gate) State(ctx context.Context) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loadLocked(ctx)
	return g.state
}

func (g *Gate) loadLocked(ctx context.Context) {
	if g.loaded {
		return
	}
	g.loaded = true
	if g.kv == nil {
		return
	}
	raw, found, err := g.kv.Fetch(ctx, g.key)
	if err != nil {
		if g.logg != nil {
			g.logg.Debug(ctx, "consent load failed")
		}
		return
	}
	if !found {
		return
	}
	switch State(raw) {
	case StateAccepted, StateRejected:
		g.state = State(raw)
	default:
		// Unknown stored value reads as unset.
	}
}
