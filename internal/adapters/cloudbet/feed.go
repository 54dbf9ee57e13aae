package cloudbet

// feed.go: adapter del feed de odds (solo lectura).
//
// FetchLiveEvents lista los eventos en vivo de basket que ofrecen el mercado
// odd/even; FetchSelections trae las selecciones de ese mercado para un evento.

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

const (
	sportBasketball = "basketball"
	eventsPath      = "/events"
)

// FetchLiveEvents devuelve los eventos en vivo, sin selecciones.
// Una respuesta sin competiciones devuelve una lista vacía.
func (c *Client) FetchLiveEvents(ctx context.Context) ([]domain.Event, error) {
	q := url.Values{}
	q.Set("sport", sportBasketball)
	q.Set("live", "true")
	q.Set("markets", domain.OddEvenMarket)

	var resp eventsResponse
	if err := c.get(ctx, "feed.events", c.feedBase+eventsPath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("cloudbet.FetchLiveEvents: %w", err)
	}
	return mapEvents(resp), nil
}

// FetchSelections devuelve las selecciones odd/even del evento.
// Si el evento no ofrece el mercado devuelve (nil, nil).
func (c *Client) FetchSelections(ctx context.Context, eventID string) ([]domain.Selection, error) {
	q := url.Values{}
	q.Set("markets", domain.OddEvenMarket)
	u := fmt.Sprintf("%s%s/%s?%s", c.feedBase, eventsPath, url.PathEscape(eventID), q.Encode())

	var resp feedEvent
	if err := c.get(ctx, "feed.event", u, &resp); err != nil {
		return nil, fmt.Errorf("cloudbet.FetchSelections %s: %w", eventID, err)
	}

	sels, ok := mapSelections(resp, domain.OddEvenMarket)
	if !ok {
		return nil, nil
	}
	return sels, nil
}
