// Package discovery encuentra eventos en vivo cuyo mercado odd/even tiene
// al menos una selección por encima del umbral.
package discovery

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/alejandrodnm/oddbot/internal/ports"
	"github.com/shopspring/decimal"
)

// Service consulta el feed y filtra eventos y selecciones.
type Service struct {
	feed ports.OddsFeed
}

// New crea un Service sobre el feed dado.
func New(feed ports.OddsFeed) *Service {
	return &Service{feed: feed}
}

// Discover devuelve los eventos TRADING_LIVE con selecciones de precio
// estrictamente mayor que threshold. Los fallos del feed no se propagan:
// el resultado es una lista vacía o parcial.
func (s *Service) Discover(ctx context.Context, threshold decimal.Decimal) []domain.Event {
	events, err := s.feed.FetchLiveEvents(ctx)
	if err != nil {
		slog.Error("fetch live events failed", "err", err)
		return nil
	}
	if len(events) == 0 {
		slog.Info("no live basketball events")
		return nil
	}

	var qualifying []domain.Event
	for _, ev := range events {
		if ctx.Err() != nil {
			return qualifying
		}
		if !ev.IsTradingLive() {
			slog.Debug("event not trading live", "event_id", ev.ID, "status", ev.Status)
			continue
		}

		sels, err := s.feed.FetchSelections(ctx, ev.ID)
		if err != nil {
			slog.Error("fetch event market failed", "event_id", ev.ID, "err", err)
			continue
		}
		if len(sels) == 0 {
			slog.Debug("event has no odd/even selections", "event_id", ev.ID)
			continue
		}

		above := domain.FilterAbove(sels, threshold)
		if len(above) == 0 {
			slog.Debug("no selection above threshold",
				"event_id", ev.ID,
				"threshold", threshold.String(),
			)
			continue
		}

		ev.Selections = above
		qualifying = append(qualifying, ev)
	}

	slog.Info("discovery complete",
		"live_events", len(events),
		"qualifying", len(qualifying),
		"threshold", threshold.String(),
	)
	return qualifying
}
