package ports

import (
	"context"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

// OddsFeed obtiene eventos en vivo y sus selecciones odd/even.
type OddsFeed interface {
	// FetchLiveEvents devuelve los eventos en vivo del deporte, sin selecciones.
	FetchLiveEvents(ctx context.Context) ([]domain.Event, error)

	// FetchSelections devuelve las selecciones del mercado odd/even del evento.
	// (nil, nil) significa que el evento no ofrece el mercado.
	FetchSelections(ctx context.Context, eventID string) ([]domain.Selection, error)
}
