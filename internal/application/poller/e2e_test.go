package poller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/oddbot/internal/adapters/cloudbet"
	"github.com/alejandrodnm/oddbot/internal/adapters/storage"
	"github.com/alejandrodnm/oddbot/internal/application/discovery"
	"github.com/alejandrodnm/oddbot/internal/application/monitor"
	"github.com/alejandrodnm/oddbot/internal/application/placement"
	"github.com/alejandrodnm/oddbot/internal/application/poller"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider sirve el feed y el trading API desde fixtures.
type fakeProvider struct {
	mu      sync.Mutex
	placed  []map[string]string
	queries int
	// placeReply reemplaza la respuesta de /place cuando no está vacío.
	placeReply string
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	live, err := os.ReadFile("../../../testdata/fixtures/cloudbet_live_events.json")
	require.NoError(t, err)
	market, err := os.ReadFile("../../../testdata/fixtures/cloudbet_event_odd_even.json")
	require.NoError(t, err)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/odds/events":
			w.Write(live)
		case r.URL.Path == "/odds/events/4412001":
			w.Write(market)
		case strings.HasPrefix(r.URL.Path, "/odds/events/"):
			w.Write([]byte(`{"id":"other","status":"TRADING_LIVE","markets":{}}`))
		case r.URL.Path == "/bets/place":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.placed = append(f.placed, body)
			f.mu.Unlock()
			if f.placeReply != "" {
				w.Write([]byte(f.placeReply))
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"referenceId": body["referenceId"],
				"status":      "PENDING_ACCEPTANCE",
			})
		case strings.HasSuffix(r.URL.Path, "/status"):
			f.mu.Lock()
			f.queries++
			n := f.queries
			f.mu.Unlock()
			status := "PENDING_ACCEPTANCE"
			if n >= 2 {
				status = "WIN"
			}
			w.Write([]byte(`{"status":"` + status + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// newStack arma el bot completo contra srv, con SQLite en memoria y reloj fake.
func newStack(t *testing.T, srv *httptest.Server) (*poller.Poller, *storage.SQLStore, *monitor.PendingBets, *monitor.Pool) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	client := cloudbet.NewClient(cloudbet.Config{
		FeedBase:    srv.URL + "/odds",
		TradingBase: srv.URL + "/bets",
		APIKey:      "test-key",
		Gate:        ratelimit.New(ratelimit.Config{}, clk),
		Clock:       clk,
	})

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	pending := monitor.NewPendingBets()
	mon := monitor.New(monitor.DefaultConfig(), client, pending, clk)
	pool := monitor.NewPool(ctx, 2, 8, func(ctx context.Context, ref string) {
		_, _ = mon.Watch(ctx, ref)
	})

	place := placement.New(placement.Config{}, client, store, monitor.NewTracker(pending, pool), clk)
	p := poller.New(cfg(), store, discovery.New(client), place, &mockNotifier{}, pending, clk)
	return p, store, pending, pool
}

func TestRunOnce_EndToEnd(t *testing.T) {
	provider := &fakeProvider{}
	srv := httptest.NewServer(provider.handler(t))
	defer srv.Close()

	p, store, pending, pool := newStack(t, srv)
	ctx := context.Background()

	report, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.NoError(t, pool.Drain(ctx))

	// odd 1.90 > 1.84, even 1.80 no
	require.Len(t, report.Placed, 1)
	require.Len(t, provider.placed, 1)
	body := provider.placed[0]
	assert.Equal(t, "4412001", body["eventId"])
	assert.Equal(t, "basketball.odd_even/odd", body["marketUrl"])
	assert.Equal(t, "1.9", body["price"])
	assert.Equal(t, "2.5", body["stake"])
	assert.Equal(t, "PLAY_EUR", body["currency"])
	assert.Equal(t, "BETTER", body["acceptPriceChange"])

	seen, err := store.SeenIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, seen, "4412001")
	assert.Len(t, seen, 1)

	// el monitor consultó hasta WIN y borró la entrada
	assert.Equal(t, 2, provider.queries)
	assert.Equal(t, 0, pending.Len())

	// segundo ciclo: el evento ya está en el store
	report, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.New)
	assert.Len(t, provider.placed, 1)
}

func TestRunOnce_UnconfirmedBetStillMarkedSeen(t *testing.T) {
	// 2xx sin status: el provider recibió la apuesta pero no se puede monitorear
	provider := &fakeProvider{placeReply: `{"referenceId":"x"}`}
	srv := httptest.NewServer(provider.handler(t))
	defer srv.Close()

	p, store, pending, pool := newStack(t, srv)
	ctx := context.Background()

	report, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Placed)
	assert.Equal(t, 0, pending.Len())

	seen, err := store.SeenIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, seen, "4412001")

	_, err = p.RunOnce(ctx)
	require.NoError(t, err)
	require.NoError(t, pool.Drain(ctx))

	assert.Len(t, provider.placed, 1, "event never bet twice")
	assert.Zero(t, provider.queries)
}
