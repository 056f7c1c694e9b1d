package usecase

import (
	"sync"
	"time"

	"mensajemagico/internal/domain"
)

// User-facing denial messages.
const (
	DailyLimitMessage   = "Has alcanzado el límite diario de generaciones. Vuelve mañana."
	SessionLimitMessage = "Has alcanzado el límite de generaciones de esta sesión."
)

// UsageGovernor enforces the per-session and per-day generation quotas and
// the minimum interval between generations. The daily counter belongs to the
// local calendar day of the last recorded generation and is reset lazily on
// the first check or record of a new day. Safe for concurrent use.
//
// Check followed by Record is not a reservation: two concurrent callers may
// both be allowed the last unit of quota.
type UsageGovernor struct {
	mu     sync.Mutex
	limits domain.UsageLimits
	state  domain.UsageState
	now    func() time.Time
}

// GovernorOption configures a UsageGovernor.
type GovernorOption func(*UsageGovernor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) GovernorOption {
	return func(g *UsageGovernor) { g.now = now }
}

// NewUsageGovernor creates a governor with a fresh session.
func NewUsageGovernor(limits domain.UsageLimits, opts ...GovernorOption) *UsageGovernor {
	g := &UsageGovernor{limits: limits, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check reports whether a generation may start now. It never blocks; a
// non-zero Delay must be waited out by the caller before calling out.
func (g *UsageGovernor) Check() domain.UsageDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rolloverLocked(now)

	if g.limits.DailyLimit > 0 && g.state.DailyCount >= g.limits.DailyLimit {
		return domain.UsageDecision{Message: DailyLimitMessage}
	}
	if g.limits.SessionLimit > 0 && g.state.SessionCount >= g.limits.SessionLimit {
		return domain.UsageDecision{Message: SessionLimitMessage}
	}
	if g.limits.MinInterval > 0 && !g.state.LastGenerationAt.IsZero() {
		elapsed := max(now.Sub(g.state.LastGenerationAt), 0)
		if elapsed < g.limits.MinInterval {
			return domain.UsageDecision{Allowed: true, Delay: g.limits.MinInterval - elapsed}
		}
	}
	return domain.UsageDecision{Allowed: true}
}

// Record counts one accepted generation, including cache hits.
func (g *UsageGovernor) Record() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rolloverLocked(now)
	g.state.SessionCount++
	g.state.DailyCount++
	g.state.LastGenerationAt = now
}

// Reset starts a new session and clears the daily counter.
func (g *UsageGovernor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = domain.UsageState{}
}

// Snapshot returns a copy of the current state, with the daily counter
// already rolled over if the day has changed.
func (g *UsageGovernor) Snapshot() domain.UsageState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked(g.now())
	return g.state
}

// Limits returns the configured limits.
func (g *UsageGovernor) Limits() domain.UsageLimits {
	return g.limits
}

// rolloverLocked zeroes the daily counter when now falls on a later calendar
// day than the last recorded generation. Callers must hold g.mu.
func (g *UsageGovernor) rolloverLocked(now time.Time) {
	if g.state.LastGenerationAt.IsZero() || g.state.DailyCount == 0 {
		return
	}
	if !sameDay(g.state.LastGenerationAt, now) {
		g.state.DailyCount = 0
	}
}

// sameDay compares calendar dates in now's location.
func sameDay(last, now time.Time) bool {
	y1, m1, d1 := last.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
