package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mensajemagico/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestUsageGovernor_FreshSessionAllowed(t *testing.T) {
	g := NewUsageGovernor(domain.UsageLimits{DailyLimit: 5, SessionLimit: 5, MinInterval: time.Second})

	d := g.Check()
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Delay)
	assert.Empty(t, d.Message)
}

func TestUsageGovernor_DailyLimit(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{DailyLimit: 20}, WithClock(clock.Now))

	for i := 0; i < 20; i++ {
		require.True(t, g.Check().Allowed, "generation %d", i+1)
		g.Record()
		clock.Advance(time.Minute)
	}

	d := g.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, DailyLimitMessage, d.Message)
	assert.Equal(t, 20, g.Snapshot().DailyCount)
}

func TestUsageGovernor_DayRolloverResetsDaily(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{DailyLimit: 2}, WithClock(clock.Now))

	g.Record()
	g.Record()
	require.False(t, g.Check().Allowed)

	clock.Advance(24 * time.Hour)

	assert.True(t, g.Check().Allowed)
	snap := g.Snapshot()
	assert.Equal(t, 0, snap.DailyCount)
	assert.Equal(t, 2, snap.SessionCount, "session count survives the rollover")
}

func TestUsageGovernor_SessionLimitSurvivesRollover(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{DailyLimit: 20, SessionLimit: 3}, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		g.Record()
	}
	d := g.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, SessionLimitMessage, d.Message)

	clock.Advance(24 * time.Hour)

	d = g.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, SessionLimitMessage, d.Message)
}

func TestUsageGovernor_DailyCheckedBeforeSession(t *testing.T) {
	g := NewUsageGovernor(domain.UsageLimits{DailyLimit: 1, SessionLimit: 1})
	g.Record()

	assert.Equal(t, DailyLimitMessage, g.Check().Message)
}

func TestUsageGovernor_Cooldown(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{MinInterval: 3000 * time.Millisecond}, WithClock(clock.Now))

	g.Record()
	clock.Advance(1000 * time.Millisecond)

	d := g.Check()
	assert.True(t, d.Allowed)
	assert.InDelta(t, float64(2000*time.Millisecond), float64(d.Delay), float64(10*time.Millisecond))

	clock.Advance(2000 * time.Millisecond)
	d = g.Check()
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Delay)
}

func TestUsageGovernor_ClockSkewCapsDelay(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{MinInterval: time.Second}, WithClock(clock.Now))

	g.Record()
	clock.Advance(-time.Minute)

	assert.Equal(t, time.Second, g.Check().Delay)
}

func TestUsageGovernor_ZeroLimitsMeanNoLimit(t *testing.T) {
	g := NewUsageGovernor(domain.UsageLimits{})
	for i := 0; i < 100; i++ {
		g.Record()
	}
	d := g.Check()
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Delay)
}

func TestUsageGovernor_RecordStampsTime(t *testing.T) {
	clock := newFakeClock()
	g := NewUsageGovernor(domain.UsageLimits{}, WithClock(clock.Now))

	g.Record()
	snap := g.Snapshot()
	assert.Equal(t, 1, snap.SessionCount)
	assert.Equal(t, 1, snap.DailyCount)
	assert.Equal(t, clock.Now(), snap.LastGenerationAt)
}

func TestUsageGovernor_Reset(t *testing.T) {
	g := NewUsageGovernor(domain.UsageLimits{SessionLimit: 1})
	g.Record()
	require.False(t, g.Check().Allowed)

	g.Reset()

	assert.True(t, g.Check().Allowed)
	assert.Equal(t, domain.UsageState{}, g.Snapshot())
}

func TestUsageGovernor_ConcurrentRecord(t *testing.T) {
	g := NewUsageGovernor(domain.UsageLimits{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Check()
			g.Record()
		}()
	}
	wg.Wait()

	snap := g.Snapshot()
	assert.Equal(t, 50, snap.SessionCount)
	assert.Equal(t, 50, snap.DailyCount)
}
