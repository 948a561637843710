// Package config loads application settings from the environment and an optional .env file.
package config

import (
	"coinlab/types"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	envDatabaseURL      = "COINLAB_DATABASE_URL"
	envPriceDir         = "COINLAB_PRICE_DIR"
	envWorkers          = "COINLAB_WORKERS"
	envLogLevel         = "COINLAB_LOG_LEVEL"
	envHTTPAddr         = "COINLAB_HTTP_ADDR"
	envCoins            = "COINLAB_COINS"
	envTopN             = "COINLAB_TOP_N"
	envOptimizerTimeout = "COINLAB_OPTIMIZER_TIMEOUT"
	envPriceCacheTTL    = "COINLAB_PRICE_CACHE_TTL"
)

// Config holds process-wide settings. Either DatabaseURL or PriceDir must be set so
// that backtests have a price source.
type Config struct {
	DatabaseURL      string
	PriceDir         string
	Workers          int
	LogLevel         string
	HTTPAddr         string
	Coins            []string
	TopN             int
	OptimizerTimeout time.Duration
	PriceCacheTTL    time.Duration
}

func Default() Config {
	return Config{
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
		HTTPAddr:      ":8080",
		Coins:         append([]string(nil), types.DefaultCoins...),
		TopN:          20,
		PriceCacheTTL: 15 * time.Minute,
	}
}

// Load reads envFiles (default ".env") when present, then overlays the environment on
// the defaults. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Default()
	c.DatabaseURL = os.Getenv(envDatabaseURL)
	c.PriceDir = os.Getenv(envPriceDir)
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(envHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(envCoins); v != "" {
		c.Coins = splitList(v)
	}

	var err error
	if c.Workers, err = intEnv(envWorkers, c.Workers); err != nil {
		return Config{}, err
	}
	if c.TopN, err = intEnv(envTopN, c.TopN); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(envOptimizerTimeout); v != "" {
		if c.OptimizerTimeout, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envOptimizerTimeout, err)
		}
	}
	if v := os.Getenv(envPriceCacheTTL); v != "" {
		if c.PriceCacheTTL, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envPriceCacheTTL, err)
		}
	}
	return c, c.Validate()
}

// Validate checks that all fields are within sensible bounds and returns the first problem.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.PriceDir == "" {
		return fmt.Errorf("one of %s or %s must be set", envDatabaseURL, envPriceDir)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers (%d) must be positive", c.Workers)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top n (%d) must be positive", c.TopN)
	}
	if c.OptimizerTimeout < 0 {
		return errors.New("optimizer timeout cannot be negative")
	}
	if len(c.Coins) == 0 {
		return errors.New("coin list cannot be empty")
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if c := types.NormalizeCoin(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}
