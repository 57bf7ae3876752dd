package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tickerfeed/pkg/binance"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Binance  BinanceConfig  `mapstructure:"binance"`
	Ticker   TickerConfig   `mapstructure:"ticker"`
	Backoff  BackoffConfig  `mapstructure:"backoff"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type BinanceConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WSConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"` // 0 disables stale detection
}

// TickerConfig selects the single stream the client follows.
type TickerConfig struct {
	Symbol       string `mapstructure:"symbol"` // base asset, e.g. "zec"
	Quote        string `mapstructure:"quote"`  // quote asset, e.g. "usdt"
	Stream       string `mapstructure:"stream"` // stream type, e.g. "miniTicker"
	VerifySymbol bool   `mapstructure:"verify_symbol"`
}

// Pair returns the lower-case trading pair used in stream names, e.g. "zecusdt".
func (t TickerConfig) Pair() string {
	return strings.ToLower(t.Symbol + t.Quote)
}

// Unit returns the suffix shown after formatted prices, e.g. "USDT".
func (t TickerConfig) Unit() string {
	return strings.ToUpper(t.Quote)
}

type BackoffConfig struct {
	Base    time.Duration `mapstructure:"base"`
	Ceiling time.Duration `mapstructure:"ceiling"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics listener
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.ws.url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("binance.ws.handshake_timeout", 10*time.Second)
	v.SetDefault("binance.ws.write_timeout", 5*time.Second)
	v.SetDefault("binance.ws.read_timeout", 60*time.Second)
	v.SetDefault("binance.rest.base_url", "https://api.binance.com")
	v.SetDefault("binance.rest.timeout", 10*time.Second)

	v.SetDefault("ticker.symbol", "zec")
	v.SetDefault("ticker.quote", "usdt")
	v.SetDefault("ticker.stream", "miniTicker")
	v.SetDefault("ticker.verify_symbol", true)

	v.SetDefault("backoff.base", 5*time.Second)
	v.SetDefault("backoff.ceiling", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("metrics.addr", ":9108")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "tickerfeed")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.max_open_conns", 4)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
}

// Load loads application configuration using Viper.
// It reads config.yaml from the given directories (or the default location
// next to the binary), then overrides with environment variables.
// A missing config file is not an error; every key has a default.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = defaultPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., BINANCE_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultPaths() []string {
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return []string{filepath.Join(pwd, "config"), filepath.Join(pwd, "../../config")}
	}
	return []string{filepath.Join(filepath.Dir(ex), "../config"), "config"}
}

// Validate checks the values the feed cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Binance.WS.URL == "":
		return fmt.Errorf("%w: binance.ws.url is empty", ErrInvalidConfig)
	case c.Ticker.Symbol == "":
		return fmt.Errorf("%w: ticker.symbol is empty", ErrInvalidConfig)
	case c.Ticker.Quote == "":
		return fmt.Errorf("%w: ticker.quote is empty", ErrInvalidConfig)
	case c.Ticker.Stream == "":
		return fmt.Errorf("%w: ticker.stream is empty", ErrInvalidConfig)
	case !binance.StreamType(c.Ticker.Stream).IsValid():
		return fmt.Errorf("%w: unknown ticker.stream %q", ErrInvalidConfig, c.Ticker.Stream)
	case c.Backoff.Base <= 0:
		return fmt.Errorf("%w: backoff.base must be positive, got %s", ErrInvalidConfig, c.Backoff.Base)
	case c.Backoff.Ceiling < c.Backoff.Base:
		return fmt.Errorf("%w: backoff.ceiling %s is below backoff.base %s",
			ErrInvalidConfig, c.Backoff.Ceiling, c.Backoff.Base)
	}
	return nil
}
