package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/oddbot/config"
	"github.com/alejandrodnm/oddbot/internal/adapters/cloudbet"
	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/adapters/notify"
	"github.com/alejandrodnm/oddbot/internal/adapters/storage"
	"github.com/alejandrodnm/oddbot/internal/application/discovery"
	"github.com/alejandrodnm/oddbot/internal/application/monitor"
	"github.com/alejandrodnm/oddbot/internal/application/placement"
	"github.com/alejandrodnm/oddbot/internal/application/poller"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/alejandrodnm/oddbot/internal/ratelimit"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	once := flag.Bool("once", false, "run one poll cycle, wait for its monitors and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables per cycle (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			slog.Error("missing credentials, set them in the environment or .env", "err", err)
		} else {
			slog.Error("invalid config", "err", err)
		}
		os.Exit(1)
	}

	slog.Info("oddbot starting",
		"config", *configPath,
		"interval", cfg.PollInterval(),
		"threshold", cfg.Threshold().String(),
		"stake", cfg.Stake().String(),
		"currency", cfg.Betting.Currency,
		"store", storage.Backend(cfg.Storage.DSN),
		"workers", cfg.Monitor.Workers,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clk := clock.Real{}
	gate := ratelimit.New(ratelimit.Config{
		MinInterval: time.Duration(cfg.Provider.MinIntervalMS) * time.Millisecond,
		JitterMin:   time.Duration(cfg.Provider.JitterMinMS) * time.Millisecond,
		JitterMax:   time.Duration(cfg.Provider.JitterMaxMS) * time.Millisecond,
	}, clk)

	client := cloudbet.NewClient(cloudbet.Config{
		FeedBase:    cfg.Provider.FeedBase,
		TradingBase: cfg.Provider.TradingBase,
		APIKey:      cfg.Provider.APIKey,
		Gate:        gate,
		Clock:       clk,
	})

	store, err := storage.Open(ctx, cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open seen store", "err", err, "backend", storage.Backend(cfg.Storage.DSN))
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Metrics.Port != "" {
		srv := metrics.StartServer(cfg.Metrics.Port, store.Ping)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Los monitores corren con su propio contexto para poder drenarlos
	// después de la señal de apagado.
	monCtx, stopMonitors := context.WithCancel(context.Background())
	defer stopMonitors()

	pending := monitor.NewPendingBets()
	mon := monitor.New(monitor.Config{
		MaxChecks:    cfg.Monitor.MaxChecks,
		BaseInterval: cfg.MonitorBaseInterval(),
		JitterMin:    5 * time.Second,
		JitterMax:    15 * time.Second,
	}, client, pending, clk)
	pool := monitor.NewPool(monCtx, cfg.Monitor.Workers, cfg.Monitor.QueueSize, func(ctx context.Context, ref string) {
		_, _ = mon.Watch(ctx, ref)
	})

	place := placement.New(placement.Config{
		Currency:          cfg.Betting.Currency,
		AcceptPriceChange: domain.PriceChangePolicy(cfg.Betting.AcceptPriceChange),
	}, client, store, monitor.NewTracker(pending, pool), clk)

	notifier := notify.NewConsole(*table)

	p := poller.New(poller.Config{
		Interval:  cfg.PollInterval(),
		Threshold: cfg.Threshold(),
		Stake:     cfg.Stake(),
	}, store, discovery.New(client), place, notifier, pending, clk)

	if *once {
		if _, err := p.RunOnce(ctx); err != nil {
			slog.Error("poll cycle failed", "err", err)
		}
		// -once espera a los monitores hasta que resuelvan o llegue una señal.
		shutdown(ctx, pool, pending, notifier, stopMonitors)
		slog.Info("oddbot stopped cleanly")
		return
	}

	if err := p.Run(ctx); err != nil {
		slog.Error("poller exited with error", "err", err)
	}

	drainCtx, done := context.WithTimeout(context.Background(), cfg.DrainTimeout())
	defer done()
	shutdown(drainCtx, pool, pending, notifier, stopMonitors)

	slog.Info("oddbot stopped cleanly")
}

// shutdown deja de aceptar monitores y espera a los activos hasta que venza
// ctx; los que queden se cancelan.
func shutdown(ctx context.Context, pool *monitor.Pool, pending *monitor.PendingBets, notifier *notify.Console, stopMonitors context.CancelFunc) {
	if n := pending.Len(); n > 0 {
		slog.Info("draining bet monitors", "pending", n)
		notifier.PrintPending(pending.Snapshot(), time.Now())
	}

	if err := pool.Drain(ctx); err != nil {
		slog.Warn("monitor drain timed out, cancelling", "pending", pending.Len())
		stopMonitors()

		waitCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = pool.Drain(waitCtx)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
