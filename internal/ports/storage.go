package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

// SeenStore es el set durable de eventos sobre los que ya se apostó.
type SeenStore interface {
	// MarkSeen guarda el evento con su timestamp. Reescribir un ID es idempotente.
	MarkSeen(ctx context.Context, eventID string, at time.Time) error

	// SeenIDs devuelve todas las keys guardadas.
	SeenIDs(ctx context.Context) (map[string]struct{}, error)

	// SeenEvents devuelve los eventos con su timestamp, más recientes primero.
	SeenEvents(ctx context.Context) ([]domain.SeenEvent, error)

	// Ping verifica que el backend responde.
	Ping(ctx context.Context) error

	// Close cierra la conexión limpiamente.
	Close() error
}
