package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/oddbot/internal/application/poller"
	"github.com/alejandrodnm/oddbot/internal/backoff"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSeenStore struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	failures int
	loads    int
}

func (m *mockSeenStore) MarkSeen(_ context.Context, eventID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[eventID] = struct{}{}
	return nil
}

func (m *mockSeenStore) SeenIDs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.failures != 0 {
		m.failures--
		return nil, errors.New("connection refused")
	}
	out := make(map[string]struct{}, len(m.ids))
	for id := range m.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *mockSeenStore) SeenEvents(context.Context) ([]domain.SeenEvent, error) { return nil, nil }

func (m *mockSeenStore) Ping(context.Context) error { return nil }

func (m *mockSeenStore) Close() error { return nil }

type mockDiscoverer struct {
	events []domain.Event
	calls  int
}

func (m *mockDiscoverer) Discover(_ context.Context, _ decimal.Decimal) []domain.Event {
	m.calls++
	return m.events
}

type mockPlacer struct {
	placed []string
}

func (m *mockPlacer) Place(_ context.Context, ev domain.Event, _ decimal.Decimal) []domain.BetResult {
	m.placed = append(m.placed, ev.ID)
	return []domain.BetResult{{ReferenceID: "ref-" + ev.ID, Status: domain.BetPendingAcceptance}}
}

type mockNotifier struct {
	reports []domain.CycleReport
	onCycle func(n int)
}

func (m *mockNotifier) Notify(_ context.Context, r domain.CycleReport) error {
	m.reports = append(m.reports, r)
	if m.onCycle != nil {
		m.onCycle(len(m.reports))
	}
	return nil
}

// --- helpers ---

func cfg() poller.Config {
	return poller.Config{
		Interval:  300 * time.Second,
		Threshold: decimal.RequireFromString("1.84"),
		Stake:     decimal.RequireFromString("2.5"),
		SeenRetry: backoff.Policy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second},
	}
}

func events(ids ...string) []domain.Event {
	out := make([]domain.Event, len(ids))
	for i, id := range ids {
		out[i] = domain.Event{ID: id, Name: "event " + id, Status: domain.EventStatusTradingLive}
	}
	return out
}

func TestRunOnce_SkipsSeenEvents(t *testing.T) {
	store := &mockSeenStore{ids: map[string]struct{}{"1": {}}}
	disc := &mockDiscoverer{events: events("1", "2")}
	placer := &mockPlacer{}
	notifier := &mockNotifier{}
	p := poller.New(cfg(), store, disc, placer, notifier, nil, clock.NewFake(time.Now()))

	report, err := p.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, placer.placed)
	assert.Len(t, report.Qualifying, 2)
	require.Len(t, report.New, 1)
	assert.Equal(t, "2", report.New[0].ID)
	assert.Len(t, report.Placed, 1)
	require.Len(t, notifier.reports, 1)
}

func TestRunOnce_SeenEventNeverPlacedAcrossCycles(t *testing.T) {
	store := &mockSeenStore{ids: map[string]struct{}{"1": {}}}
	disc := &mockDiscoverer{events: events("1")}
	placer := &mockPlacer{}
	p := poller.New(cfg(), store, disc, placer, &mockNotifier{}, nil, clock.NewFake(time.Now()))

	for i := 0; i < 3; i++ {
		_, err := p.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Empty(t, placer.placed)
	assert.Equal(t, 3, disc.calls)
}

func TestRunOnce_StoreFailureSkipsCycle(t *testing.T) {
	store := &mockSeenStore{failures: -1}
	disc := &mockDiscoverer{events: events("1")}
	placer := &mockPlacer{}
	notifier := &mockNotifier{}
	clk := clock.NewFake(time.Now())
	p := poller.New(cfg(), store, disc, placer, notifier, nil, clk)

	_, err := p.RunOnce(context.Background())

	assert.ErrorIs(t, err, poller.ErrCycleSkipped)
	assert.Equal(t, 3, store.loads)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clk.Sleeps())
	assert.Zero(t, disc.calls, "never discovers with an unknown seen set")
	assert.Empty(t, placer.placed)
	assert.Empty(t, notifier.reports)
}

func TestRunOnce_StoreRecovers(t *testing.T) {
	store := &mockSeenStore{ids: map[string]struct{}{}, failures: 1}
	disc := &mockDiscoverer{events: events("7")}
	placer := &mockPlacer{}
	p := poller.New(cfg(), store, disc, placer, &mockNotifier{}, nil, clock.NewFake(time.Now()))

	_, err := p.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
	assert.Equal(t, []string{"7"}, placer.placed)
}

func TestRunOnce_DuplicateInCycleNotDeduplicated(t *testing.T) {
	store := &mockSeenStore{ids: map[string]struct{}{}}
	disc := &mockDiscoverer{events: events("5", "5")}
	placer := &mockPlacer{}
	p := poller.New(cfg(), store, disc, placer, &mockNotifier{}, nil, clock.NewFake(time.Now()))

	_, err := p.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"5", "5"}, placer.placed)
}

func TestRun_SleepsBetweenCyclesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &mockSeenStore{ids: map[string]struct{}{}}
	notifier := &mockNotifier{onCycle: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	clk := clock.NewFake(time.Now())
	p := poller.New(cfg(), store, &mockDiscoverer{}, &mockPlacer{}, notifier, nil, clk)

	require.NoError(t, p.Run(ctx))

	assert.Len(t, notifier.reports, 3)
	assert.Equal(t, []time.Duration{300 * time.Second, 300 * time.Second}, clk.Sleeps())
}

func TestRun_KeepsGoingAfterSkippedCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cfg()
	c.SeenRetry = backoff.Policy{MaxAttempts: 1}
	store := &mockSeenStore{ids: map[string]struct{}{}, failures: 1}
	notifier := &mockNotifier{onCycle: func(int) { cancel() }}
	p := poller.New(c, store, &mockDiscoverer{}, &mockPlacer{}, notifier, nil, clock.NewFake(time.Now()))

	require.NoError(t, p.Run(ctx))

	assert.Equal(t, 2, store.loads)
	assert.Len(t, notifier.reports, 1)
}
