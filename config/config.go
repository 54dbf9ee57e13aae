package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/oddbot/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential indica que falta un valor obligatorio para arrancar.
var ErrMissingCredential = errors.New("missing required setting")

// Config es la configuración completa del bot.
type Config struct {
	Betting  BettingConfig  `yaml:"betting"`
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// BettingConfig controla qué se apuesta y cada cuánto.
type BettingConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	PriceThreshold      string `yaml:"price_threshold"` // decimal, comparación estricta
	StakePerSide        string `yaml:"stake_per_side"`  // decimal > 0
	Currency            string `yaml:"currency"`
	AcceptPriceChange   string `yaml:"accept_price_change"` // NONE | BETTER | ALL
}

// ProviderConfig contiene los base URLs y el ritmo de las llamadas salientes.
type ProviderConfig struct {
	APIKey        string `yaml:"api_key"`
	FeedBase      string `yaml:"feed_base"`
	TradingBase   string `yaml:"trading_base"`
	MinIntervalMS int    `yaml:"min_interval_ms"`
	JitterMinMS   int    `yaml:"jitter_min_ms"`
	JitterMaxMS   int    `yaml:"jitter_max_ms"`
}

// StorageConfig elige el backend del set de eventos vistos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // redis://…, postgres://… o ruta a un archivo SQLite
}

// MonitorConfig controla el pool de monitoreo de apuestas.
type MonitorConfig struct {
	Workers             int `yaml:"workers"`
	QueueSize           int `yaml:"queue_size"`
	MaxChecks           int `yaml:"max_checks"`
	BaseIntervalSeconds int `yaml:"base_interval_seconds"`
	DrainTimeoutSeconds int `yaml:"drain_timeout_seconds"`
}

// MetricsConfig controla el servidor de /metrics y /healthz.
type MetricsConfig struct {
	Port string `yaml:"port"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga el archivo YAML (opcional: path vacío lo omite) y el .env si
// existe. Las variables de entorno sobreescriben al YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate verifica los valores obligatorios. Los que faltan devuelven un
// error que envuelve ErrMissingCredential.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("config.Validate: ODDS_API_KEY: %w", ErrMissingCredential)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("config.Validate: STORE_DSN: %w", ErrMissingCredential)
	}
	if c.Betting.StakePerSide == "" {
		return fmt.Errorf("config.Validate: STAKE_PER_SIDE: %w", ErrMissingCredential)
	}

	stake, err := decimal.NewFromString(c.Betting.StakePerSide)
	if err != nil {
		return fmt.Errorf("config.Validate: STAKE_PER_SIDE %q: %w", c.Betting.StakePerSide, err)
	}
	if !stake.IsPositive() {
		return fmt.Errorf("config.Validate: STAKE_PER_SIDE must be > 0, got %s", stake)
	}
	if _, err := decimal.NewFromString(c.Betting.PriceThreshold); err != nil {
		return fmt.Errorf("config.Validate: PRICE_THRESHOLD %q: %w", c.Betting.PriceThreshold, err)
	}

	switch c.Betting.AcceptPriceChange {
	case string(domain.AcceptPriceNone), string(domain.AcceptPriceBetter), string(domain.AcceptPriceAll):
	default:
		return fmt.Errorf("config.Validate: accept_price_change %q: want NONE, BETTER or ALL", c.Betting.AcceptPriceChange)
	}
	return nil
}

// PollInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Betting.PollIntervalSeconds) * time.Second
}

// Threshold devuelve el umbral de precio. Llamar después de Validate.
func (c *Config) Threshold() decimal.Decimal {
	return decimal.RequireFromString(c.Betting.PriceThreshold)
}

// Stake devuelve el stake por selección. Llamar después de Validate.
func (c *Config) Stake() decimal.Decimal {
	return decimal.RequireFromString(c.Betting.StakePerSide)
}

func (c *Config) MonitorBaseInterval() time.Duration {
	return time.Duration(c.Monitor.BaseIntervalSeconds) * time.Second
}

func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Monitor.DrainTimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"ODDS_API_KEY", &cfg.Provider.APIKey},
		{"STORE_DSN", &cfg.Storage.DSN},
		{"STAKE_PER_SIDE", &cfg.Betting.StakePerSide},
		{"PRICE_THRESHOLD", &cfg.Betting.PriceThreshold},
		{"CURRENCY", &cfg.Betting.Currency},
		{"METRICS_PORT", &cfg.Metrics.Port},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"POLL_INTERVAL_SECONDS", &cfg.Betting.PollIntervalSeconds},
		{"MONITOR_WORKERS", &cfg.Monitor.Workers},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", i.env, v, err)
		}
		*i.dst = n
	}
	return nil
}

// setDefaults asegura que los valores opcionales tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Betting.PollIntervalSeconds <= 0 {
		cfg.Betting.PollIntervalSeconds = 300
	}
	if cfg.Betting.PriceThreshold == "" {
		cfg.Betting.PriceThreshold = "1.84"
	}
	if cfg.Betting.Currency == "" {
		cfg.Betting.Currency = "PLAY_EUR"
	}
	if cfg.Betting.AcceptPriceChange == "" {
		cfg.Betting.AcceptPriceChange = string(domain.AcceptPriceBetter)
	}
	if cfg.Provider.FeedBase == "" {
		cfg.Provider.FeedBase = "https://sports-api.cloudbet.com/pub/v2/odds"
	}
	if cfg.Provider.TradingBase == "" {
		cfg.Provider.TradingBase = "https://sports-api.cloudbet.com/pub/v3/bets"
	}
	if cfg.Provider.MinIntervalMS <= 0 {
		cfg.Provider.MinIntervalMS = 1000
	}
	if cfg.Provider.JitterMinMS <= 0 {
		cfg.Provider.JitterMinMS = 50
	}
	if cfg.Provider.JitterMaxMS <= 0 {
		cfg.Provider.JitterMaxMS = 200
	}
	if cfg.Monitor.Workers <= 0 {
		cfg.Monitor.Workers = 5
	}
	if cfg.Monitor.QueueSize <= 0 {
		cfg.Monitor.QueueSize = 256
	}
	if cfg.Monitor.MaxChecks <= 0 {
		cfg.Monitor.MaxChecks = 30
	}
	if cfg.Monitor.BaseIntervalSeconds <= 0 {
		cfg.Monitor.BaseIntervalSeconds = 10
	}
	if cfg.Monitor.DrainTimeoutSeconds <= 0 {
		cfg.Monitor.DrainTimeoutSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
