package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"obavg/internal/domain"
)

type Config struct {
	App struct {
		ListenPort int    `toml:"listen_port"`
		StaticDir  string `toml:"static_dir"`
		LogLevel   string `toml:"log_level"`
	} `toml:"app"`

	Stream struct {
		Exchange       string   `toml:"exchange"`
		WsURL          string   `toml:"ws_url"` // e.g. wss://stream.binance.com:9443/stream
		Symbols        []string `toml:"symbols"`
		BufferCapacity int      `toml:"buffer_capacity"`
		MaxStreams     int      `toml:"max_streams"`
		ConnectRetries int      `toml:"connect_retries"`
		ReadTimeoutSec int      `toml:"read_timeout_sec"`
		PingEverySec   int      `toml:"ping_every_sec"`
	} `toml:"stream"`

	Query struct {
		TimeoutSec      int     `toml:"timeout_sec"`
		RestrictSymbols bool    `toml:"restrict_symbols"`
		RateLimitRPS    float64 `toml:"rate_limit_rps"`
		RateLimitBurst  int     `toml:"rate_limit_burst"`
	} `toml:"query"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			Stream     string `toml:"stream"`
			Channel    string `toml:"channel"`
		} `toml:"redis"`
	} `toml:"storage"`
}

// EnvListenPort overrides app.listen_port when set.
const EnvListenPort = "OBAVG_LISTEN_PORT"

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvListenPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvListenPort, err)
		}
		cfg.App.ListenPort = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.ListenPort <= 0 {
		cfg.App.ListenPort = 3000
	}
	if strings.TrimSpace(cfg.App.LogLevel) == "" {
		cfg.App.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.Stream.Exchange) == "" {
		cfg.Stream.Exchange = "binance"
	}
	if cfg.Stream.BufferCapacity == 0 {
		cfg.Stream.BufferCapacity = 100
	}
	if cfg.Stream.MaxStreams <= 0 {
		cfg.Stream.MaxStreams = 1024
	}
	if cfg.Stream.ConnectRetries < 0 {
		cfg.Stream.ConnectRetries = 0
	}
	if cfg.Stream.ReadTimeoutSec <= 0 {
		cfg.Stream.ReadTimeoutSec = 60
	}
	if cfg.Stream.PingEverySec <= 0 {
		cfg.Stream.PingEverySec = 25
	}
	if cfg.Query.TimeoutSec < 0 {
		cfg.Query.TimeoutSec = 0
	}
	if cfg.Query.RateLimitBurst <= 0 && cfg.Query.RateLimitRPS > 0 {
		cfg.Query.RateLimitBurst = int(cfg.Query.RateLimitRPS) * 2
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "obavg"
	}
}

func validate(cfg *Config) error {
	if cfg.App.ListenPort > 65535 {
		return fmt.Errorf("app.listen_port %d out of range", cfg.App.ListenPort)
	}

	symbols := domain.NormalizeSymbols(cfg.Stream.Symbols)
	if len(symbols) == 0 {
		return errors.New("stream.symbols is empty")
	}
	cfg.Stream.Symbols = cfg.Stream.Symbols[:0]
	for _, s := range symbols {
		cfg.Stream.Symbols = append(cfg.Stream.Symbols, s.String())
	}

	if cfg.Stream.BufferCapacity < 0 {
		return errors.New("stream.buffer_capacity must be positive")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Stream.WsURL))
	if err != nil || cfg.Stream.WsURL == "" {
		return errors.New("stream.ws_url is empty or invalid")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("stream.ws_url scheme %q, want ws or wss", u.Scheme)
	}

	if cfg.Storage.Enabled {
		if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path empty but enabled")
		}
		if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn empty but enabled")
		}
		if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return errors.New("storage.redis.addr empty but enabled")
		}
	}
	return nil
}

// SymbolList returns the configured symbols as domain values.
func (c *Config) SymbolList() []domain.Symbol {
	return domain.NormalizeSymbols(c.Stream.Symbols)
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Query.TimeoutSec) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Stream.ReadTimeoutSec) * time.Second
}

func (c *Config) PingEvery() time.Duration {
	return time.Duration(c.Stream.PingEverySec) * time.Second
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.App.ListenPort)
}
