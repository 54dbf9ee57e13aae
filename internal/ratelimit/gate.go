// Package ratelimit serializa las llamadas salientes a los APIs del provider.
//
// Un único Gate se comparte entre el poll loop y todos los monitores: dos
// llamadas nunca empiezan a menos de MinInterval de distancia, sin importar
// qué componente las emite. Cada separación lleva además un jitter aleatorio
// para no alinearse con la ventana del provider.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/alejandrodnm/oddbot/internal/clock"
	"golang.org/x/time/rate"
)

const (
	DefaultMinInterval = time.Second
	DefaultJitterMin   = 50 * time.Millisecond
	DefaultJitterMax   = 200 * time.Millisecond
)

// Config controla la separación mínima entre grants.
type Config struct {
	MinInterval time.Duration
	JitterMin   time.Duration
	JitterMax   time.Duration
}

// DefaultConfig devuelve 1 llamada/s con 50–200ms de jitter.
func DefaultConfig() Config {
	return Config{
		MinInterval: DefaultMinInterval,
		JitterMin:   DefaultJitterMin,
		JitterMax:   DefaultJitterMax,
	}
}

// Gate es un token bucket de burst 1 cuyo intervalo se re-sortea tras cada grant.
// El mutex mantiene una sola reserva pendiente a la vez, así el siguiente grant
// siempre se mide desde el anterior.
type Gate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	clock   clock.Clock
	cfg     Config
	last    time.Time
}

// New crea un Gate. Si clk es nil usa el reloj del sistema.
func New(cfg Config, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	g := &Gate{clock: clk, cfg: cfg}
	g.limiter = rate.NewLimiter(g.nextLimit(), 1)
	return g
}

// Acquire bloquea hasta que el caller puede emitir su llamada.
func (g *Gate) Acquire(ctx context.Context) error {
	_, err := g.Grant(ctx)
	return err
}

// Grant es Acquire pero devuelve el instante concedido.
func (g *Gate) Grant(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	r := g.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Time{}, fmt.Errorf("ratelimit.Grant: reservation refused")
	}

	delay := r.DelayFrom(now)
	if err := g.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(g.clock.Now())
		return time.Time{}, fmt.Errorf("ratelimit.Grant: %w", err)
	}

	grant := now.Add(delay)
	g.limiter.SetLimitAt(grant, g.nextLimit())
	g.last = grant
	return grant, nil
}

// Last devuelve el último grant (zero si nunca hubo uno).
func (g *Gate) Last() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (g *Gate) nextLimit() rate.Limit {
	d := g.cfg.MinInterval + Jitter(g.cfg.JitterMin, g.cfg.JitterMax)
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Jitter devuelve una duración uniforme en [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
