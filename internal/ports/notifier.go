package ports

import (
	"context"

	"github.com/alejandrodnm/oddbot/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// Notify muestra los eventos que calificaron y las apuestas colocadas.
	Notify(ctx context.Context, report domain.CycleReport) error
}
