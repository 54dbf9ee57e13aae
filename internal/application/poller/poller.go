// Package poller es el loop principal: cada intervalo descubre eventos,
// descarta los ya apostados y coloca apuestas en los nuevos.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/backoff"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/alejandrodnm/oddbot/internal/ports"
	"github.com/shopspring/decimal"
)

const DefaultInterval = 300 * time.Second

// ErrCycleSkipped indica que el ciclo no corrió porque no se pudo leer el
// set de eventos vistos. Nunca se apuesta con un set vacío por error.
var ErrCycleSkipped = errors.New("cycle skipped")

// Config contiene la configuración del loop.
type Config struct {
	Interval  time.Duration
	Threshold decimal.Decimal
	Stake     decimal.Decimal
	SeenRetry backoff.Policy
}

// Discoverer devuelve los eventos calificados para el umbral.
type Discoverer interface {
	Discover(ctx context.Context, threshold decimal.Decimal) []domain.Event
}

// Placer coloca las apuestas de un evento.
type Placer interface {
	Place(ctx context.Context, ev domain.Event, stake decimal.Decimal) []domain.BetResult
}

// PendingCounter reporta cuántas apuestas siguen en monitoreo.
type PendingCounter interface {
	Len() int
}

// Poller orquesta discovery → dedup → placement → reporte.
type Poller struct {
	cfg      Config
	seen     ports.SeenStore
	discover Discoverer
	place    Placer
	notifier ports.Notifier
	pending  PendingCounter
	clock    clock.Clock
}

// New crea un Poller con todas las dependencias inyectadas.
func New(
	cfg Config,
	seen ports.SeenStore,
	discover Discoverer,
	place Placer,
	notifier ports.Notifier,
	pending PendingCounter,
	clk clock.Clock,
) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SeenRetry.MaxAttempts <= 0 {
		cfg.SeenRetry = backoff.DefaultPolicy()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Poller{
		cfg:      cfg,
		seen:     seen,
		discover: discover,
		place:    place,
		notifier: notifier,
		pending:  pending,
		clock:    clk,
	}
}

// Run ejecuta ciclos hasta que el contexto se cancele. Un ciclo fallido
// se loguea y el loop sigue.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("poller starting",
		"interval", p.cfg.Interval,
		"threshold", p.cfg.Threshold.String(),
		"stake", p.cfg.Stake.String(),
	)
	p.logSeen(ctx)

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("poll cycle failed", "err", err)
		}
		if err := p.clock.Sleep(ctx, p.cfg.Interval); err != nil {
			slog.Info("poller stopped")
			return nil
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve su reporte.
func (p *Poller) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	start := p.clock.Now()

	seen, err := p.loadSeen(ctx)
	if err != nil {
		metrics.Cycles.WithLabelValues("skipped").Inc()
		return domain.CycleReport{}, fmt.Errorf("poller.RunOnce: %w: %w", ErrCycleSkipped, err)
	}

	qualifying := p.discover.Discover(ctx, p.cfg.Threshold)
	fresh := unseen(qualifying, seen)

	var placed []domain.BetResult
	for _, ev := range fresh {
		if ctx.Err() != nil {
			break
		}
		placed = append(placed, p.place.Place(ctx, ev, p.cfg.Stake)...)
	}

	report := domain.CycleReport{
		StartedAt:  start,
		Duration:   p.clock.Now().Sub(start),
		Qualifying: qualifying,
		New:        fresh,
		Placed:     placed,
	}
	if p.pending != nil {
		report.Pending = p.pending.Len()
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	metrics.Cycles.WithLabelValues("ok").Inc()
	slog.Info("poll cycle complete",
		"qualifying", len(qualifying),
		"new", len(fresh),
		"already_seen", len(qualifying)-len(fresh),
		"placed", len(placed),
		"pending", report.Pending,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// loadSeen lee el set de eventos vistos con la misma política de reintentos
// que el executor HTTP.
func (p *Poller) loadSeen(ctx context.Context) (map[string]struct{}, error) {
	var ids map[string]struct{}
	err := backoff.Retry(ctx, p.clock, p.cfg.SeenRetry, "seen.load", func(ctx context.Context) error {
		got, err := p.seen.SeenIDs(ctx)
		if err != nil {
			return err
		}
		ids = got
		return nil
	})
	return ids, err
}

// logSeen reporta el estado del store al arrancar.
func (p *Poller) logSeen(ctx context.Context) {
	events, err := p.seen.SeenEvents(ctx)
	if err != nil {
		slog.Warn("could not read seen events", "err", err)
		return
	}
	if len(events) == 0 {
		slog.Info("seen store is empty")
		return
	}
	slog.Info("seen store loaded",
		"events", len(events),
		"latest_event", events[0].EventID,
		"latest_at", events[0].CreatedAt.Format(time.RFC3339),
	)
}

// unseen conserva el orden de discovery. Duplicados dentro del mismo ciclo
// no se filtran.
func unseen(events []domain.Event, seen map[string]struct{}) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.ID]; ok {
			slog.Debug("event already processed", "event_id", ev.ID)
			continue
		}
		out = append(out, ev)
	}
	return out
}
