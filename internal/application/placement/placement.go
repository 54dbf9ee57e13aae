// Package placement coloca una apuesta por cada selección calificada de un
// evento y registra las que quedan pendientes de aceptación.
package placement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/backoff"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/alejandrodnm/oddbot/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "PLAY_EUR"

// Config contiene los parámetros fijos de cada apuesta.
type Config struct {
	Currency          string
	AcceptPriceChange domain.PriceChangePolicy
	// SeenRetry es la política para persistir el evento en el store.
	SeenRetry backoff.Policy
}

// Tracker recibe las apuestas que necesitan monitoreo.
type Tracker interface {
	Track(bet domain.PendingBet) bool
}

// Service coloca apuestas vía el trading API.
type Service struct {
	cfg     Config
	placer  ports.BetPlacer
	seen    ports.SeenStore
	tracker Tracker
	clock   clock.Clock
	newRef  func() string
}

// New crea un Service. Los campos vacíos de cfg toman los defaults.
func New(cfg Config, placer ports.BetPlacer, seen ports.SeenStore, tracker Tracker, clk clock.Clock) *Service {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.AcceptPriceChange == "" {
		cfg.AcceptPriceChange = domain.AcceptPriceBetter
	}
	if cfg.SeenRetry.MaxAttempts <= 0 {
		cfg.SeenRetry = backoff.DefaultPolicy()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		cfg:     cfg,
		placer:  placer,
		seen:    seen,
		tracker: tracker,
		clock:   clk,
		newRef:  uuid.NewString,
	}
}

// Place envía una apuesta por selección del evento. El fallo de una
// selección no detiene las demás. Devuelve las apuestas aceptadas por el API.
func (s *Service) Place(ctx context.Context, ev domain.Event, stake decimal.Decimal) []domain.BetResult {
	var placed []domain.BetResult

	for _, sel := range ev.Selections {
		if ctx.Err() != nil {
			break
		}

		req := domain.BetRequest{
			EventID:           ev.ID,
			MarketURL:         domain.MarketURLFor(sel.Outcome),
			Outcome:           sel.Outcome,
			Price:             sel.Price,
			Stake:             stake,
			Currency:          s.cfg.Currency,
			ReferenceID:       s.newRef(),
			AcceptPriceChange: s.cfg.AcceptPriceChange,
		}

		res, err := s.placer.PlaceBet(ctx, req)
		switch {
		case errors.Is(err, domain.ErrBetUnconfirmed):
			metrics.BetsPlaced.WithLabelValues("UNCONFIRMED").Inc()
			slog.Error("bet submitted but response unreadable, not monitored",
				"event", ev.Name,
				"event_id", ev.ID,
				"side", sel.Outcome,
				"ref", req.ReferenceID,
				"err", err,
			)
			s.markSeen(ctx, ev.ID)
			continue
		case err != nil:
			metrics.BetsFailed.Inc()
			slog.Error("bet submission failed",
				"event", ev.Name,
				"event_id", ev.ID,
				"side", sel.Outcome,
				"ref", req.ReferenceID,
				"err", err,
			)
			continue
		}
		metrics.BetsPlaced.WithLabelValues(string(res.Status)).Inc()

		s.markSeen(ctx, ev.ID)

		slog.Info("bet placed",
			"event", ev.Name,
			"competition", ev.Competition,
			"side", sel.Outcome,
			"stake", stake.String(),
			"currency", s.cfg.Currency,
			"price", sel.Price.String(),
			"ref", res.ReferenceID,
			"status", res.Status,
		)

		if res.Status == domain.BetPendingAcceptance {
			s.tracker.Track(domain.PendingBet{
				ReferenceID: res.ReferenceID,
				EventName:   ev.Name,
				Side:        sel.Outcome,
				Stake:       stake,
				Currency:    s.cfg.Currency,
				PlacedAt:    s.clock.Now().UTC(),
			})
		}

		placed = append(placed, res)
	}

	return placed
}

// markSeen persiste el evento con reintentos. Un fallo final solo se loguea:
// la apuesta ya fue enviada. La escritura no se corta con la cancelación de
// ctx; el presupuesto de intentos de SeenRetry la acota.
func (s *Service) markSeen(ctx context.Context, eventID string) {
	ctx = context.WithoutCancel(ctx)
	err := backoff.Retry(ctx, s.clock, s.cfg.SeenRetry, "seen.mark", func(ctx context.Context) error {
		return s.seen.MarkSeen(ctx, eventID, s.clock.Now().UTC())
	})
	if err != nil {
		slog.Error("failed to mark event as seen", "event_id", eventID, "err", err)
	}
}
