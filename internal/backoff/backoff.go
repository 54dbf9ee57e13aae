// Package backoff implementa la política de reintentos compartida: backoff
// exponencial con tope, más un jitter aleatorio en cada espera.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/ratelimit"
)

// ErrExhausted envuelve el último error cuando se agotan los intentos.
var ErrExhausted = errors.New("retries exhausted")

// Policy controla cuántas veces y cuánto se espera entre intentos.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterMin      time.Duration
	JitterMax      time.Duration
}

// DefaultPolicy: 8 intentos, backoff 1s→600s, +1–5s de jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    8,
		InitialBackoff: time.Second,
		MaxBackoff:     600 * time.Second,
		JitterMin:      time.Second,
		JitterMax:      5 * time.Second,
	}
}

// Wait es la espera a aplicar tras un fallo con el backoff actual.
func (p Policy) Wait(backoff time.Duration) time.Duration {
	return backoff + ratelimit.Jitter(p.JitterMin, p.JitterMax)
}

// Grow duplica el backoff respetando MaxBackoff.
func (p Policy) Grow(backoff time.Duration) time.Duration {
	next := backoff * 2
	if p.MaxBackoff > 0 && next > p.MaxBackoff {
		return p.MaxBackoff
	}
	return next
}

// Retry ejecuta fn hasta que devuelva nil o se agoten los intentos.
// El estado del backoff es local a esta llamada.
func Retry(ctx context.Context, clk clock.Clock, p Policy, op string, fn func(ctx context.Context) error) error {
	if clk == nil {
		clk = clock.Real{}
	}
	attempts := max(p.MaxAttempts, 1)
	backoff := p.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("operation failed", "op", op, "attempt", attempt, "err", lastErr)

		if attempt == attempts {
			break
		}
		if err := clk.Sleep(ctx, p.Wait(backoff)); err != nil {
			return err
		}
		backoff = p.Grow(backoff)
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrExhausted, attempts, lastErr)
}
