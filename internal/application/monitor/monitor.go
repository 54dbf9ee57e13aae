// Package monitor sigue cada apuesta colocada hasta un estado terminal o
// hasta agotar su presupuesto de consultas.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/alejandrodnm/oddbot/internal/ports"
	"github.com/alejandrodnm/oddbot/internal/ratelimit"
)

// Config controla el ritmo de las consultas de estado.
type Config struct {
	MaxChecks    int
	BaseInterval time.Duration
	// JitterMin/JitterMax se suman a BaseInterval cuando la apuesta sigue pendiente.
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultConfig: 30 consultas, 10s base, +5–15s de jitter.
func DefaultConfig() Config {
	return Config{
		MaxChecks:    30,
		BaseInterval: 10 * time.Second,
		JitterMin:    5 * time.Second,
		JitterMax:    15 * time.Second,
	}
}

// Monitor consulta el estado de una apuesta hasta que se resuelve.
type Monitor struct {
	cfg     Config
	checker ports.BetStatusChecker
	pending *PendingBets
	clock   clock.Clock
}

// New crea un Monitor. clk nil usa el reloj del sistema.
func New(cfg Config, checker ports.BetStatusChecker, pending *PendingBets, clk clock.Clock) *Monitor {
	if cfg.MaxChecks <= 0 {
		cfg.MaxChecks = DefaultConfig().MaxChecks
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Monitor{cfg: cfg, checker: checker, pending: pending, clock: clk}
}

// Watch consulta el estado de refID hasta un estado terminal, hasta
// MaxChecks consultas (UNRESOLVED_TIMEOUT) o hasta que ctx se cancele.
// En todos los casos la entrada de PendingBets se borra al salir.
//
// Una consulta fallida consume un intento y espera BaseInterval; una
// respuesta no terminal espera BaseInterval más jitter.
func (m *Monitor) Watch(ctx context.Context, refID string) (domain.BetStatus, error) {
	bet, _ := m.pending.Get(refID)
	defer m.pending.Remove(refID)

	for check := 1; check <= m.cfg.MaxChecks; check++ {
		if err := ctx.Err(); err != nil {
			return m.interrupted(bet, refID, check-1, err)
		}

		wait := m.cfg.BaseInterval
		status, err := m.checker.BetStatus(ctx, refID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return m.interrupted(bet, refID, check, ctx.Err())
			}
			slog.Warn("bet status check failed", "ref", refID, "check", check, "err", err)

		case status.IsTerminal():
			metrics.BetResolutions.WithLabelValues(string(status)).Inc()
			slog.Info("bet resolved",
				"event", bet.EventName,
				"side", bet.Side,
				"stake", bet.Stake.String(),
				"currency", bet.Currency,
				"ref", refID,
				"status", status,
				"checks", check,
			)
			return status, nil

		default:
			slog.Debug("bet still pending", "ref", refID, "status", status, "check", check)
			wait += ratelimit.Jitter(m.cfg.JitterMin, m.cfg.JitterMax)
		}

		if check == m.cfg.MaxChecks {
			break
		}
		if err := m.clock.Sleep(ctx, wait); err != nil {
			return m.interrupted(bet, refID, check, err)
		}
	}

	metrics.BetResolutions.WithLabelValues(string(domain.BetUnresolvedTimeout)).Inc()
	slog.Warn("monitoring ended without resolution",
		"event", bet.EventName,
		"side", bet.Side,
		"ref", refID,
		"checks", m.cfg.MaxChecks,
	)
	return domain.BetUnresolvedTimeout, nil
}

func (m *Monitor) interrupted(bet domain.PendingBet, refID string, checks int, err error) (domain.BetStatus, error) {
	slog.Info("bet monitoring interrupted",
		"event", bet.EventName,
		"side", bet.Side,
		"ref", refID,
		"checks", checks,
	)
	return domain.BetPendingAcceptance, err
}
