package cloudbet

// trading.go: adapter del trading API para colocar apuestas y consultar su estado.

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

const placePath = "/place"

// PlaceBet envía la apuesta y devuelve el estado reportado por el API.
// Una respuesta 2xx ilegible o sin referenceId/status devuelve un error que
// envuelve ErrMalformed y domain.ErrBetUnconfirmed: el envío sí llegó.
func (c *Client) PlaceBet(ctx context.Context, req domain.BetRequest) (domain.BetResult, error) {
	var resp placeResponse
	if err := c.post(ctx, "trading.place", c.tradingBase+placePath, toPlaceRequest(req), &resp); err != nil {
		if errors.Is(err, ErrMalformed) {
			return domain.BetResult{}, fmt.Errorf("cloudbet.PlaceBet %s: %w: %w", req.ReferenceID, domain.ErrBetUnconfirmed, err)
		}
		return domain.BetResult{}, fmt.Errorf("cloudbet.PlaceBet %s: %w", req.ReferenceID, err)
	}

	if resp.ReferenceID == "" || resp.Status == "" {
		return domain.BetResult{}, fmt.Errorf("cloudbet.PlaceBet %s: %w: %w: missing referenceId/status",
			req.ReferenceID, domain.ErrBetUnconfirmed, ErrMalformed)
	}

	return domain.BetResult{
		ReferenceID: resp.ReferenceID,
		Status:      domain.BetStatus(resp.Status),
		Request:     req,
	}, nil
}

// BetStatus consulta el estado actual de una apuesta por su reference id.
func (c *Client) BetStatus(ctx context.Context, referenceID string) (domain.BetStatus, error) {
	u := fmt.Sprintf("%s/%s/status", c.tradingBase, url.PathEscape(referenceID))

	var resp statusResponse
	if err := c.get(ctx, "trading.status", u, &resp); err != nil {
		return "", fmt.Errorf("cloudbet.BetStatus %s: %w", referenceID, err)
	}
	if resp.Status == "" {
		return "", fmt.Errorf("cloudbet.BetStatus %s: %w: missing status", referenceID, ErrMalformed)
	}
	return domain.BetStatus(resp.Status), nil
}
