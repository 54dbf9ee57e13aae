package ports

import (
	"context"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

// BetPlacer envía apuestas al trading API.
type BetPlacer interface {
	PlaceBet(ctx context.Context, req domain.BetRequest) (domain.BetResult, error)
}

// BetStatusChecker consulta el estado de una apuesta ya colocada.
type BetStatusChecker interface {
	BetStatus(ctx context.Context, referenceID string) (domain.BetStatus, error)
}
