// Package metrics expone contadores Prometheus del bot y un servidor liviano
// con /metrics y /healthz.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPAttempts cuenta cada intento saliente por endpoint y resultado
	// (ok | rate_limited | error).
	HTTPAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddbot_http_attempts_total",
		Help: "Outbound provider request attempts by endpoint and result.",
	}, []string{"endpoint", "result"})

	// HTTPGiveUps cuenta las llamadas que agotaron el presupuesto de intentos.
	HTTPGiveUps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddbot_http_give_ups_total",
		Help: "Outbound calls that exhausted their retry budget.",
	}, []string{"endpoint"})

	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddbot_bets_placed_total",
		Help: "Bets accepted by the trading API, by placement status.",
	}, []string{"status"})

	BetsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddbot_bets_failed_total",
		Help: "Bet submissions that never got a response.",
	})

	BetResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddbot_bet_resolutions_total",
		Help: "Monitored bets by final status, including UNRESOLVED_TIMEOUT.",
	}, []string{"status"})

	PendingBets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddbot_pending_bets",
		Help: "Bets currently tracked by a monitor task.",
	})

	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddbot_poll_cycles_total",
		Help: "Poll cycles by result (ok | skipped).",
	}, []string{"result"})
)

// HealthFunc reporta si las dependencias del proceso están sanas.
type HealthFunc func(ctx context.Context) error

// StartServer levanta /metrics y /healthz en el puerto dado, en una goroutine.
// Devuelve el server para poder cerrarlo en el shutdown.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	slog.Info("metrics server listening", "addr", srv.Addr)
	return srv
}

// Handler devuelve el mux de /metrics y /healthz.
func Handler(healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
