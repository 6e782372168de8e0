// Package config loads process configuration from the environment, with an
// optional .env file loaded first via godotenv for local development.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned by Load when database_url is unset.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required")

// ErrMissingDataserviceAddr is returned by Load when dataservice_addr is unset.
var ErrMissingDataserviceAddr = errors.New("config: DATASERVICE_ADDR is required")

// Config holds the signal engine's process configuration, sourced entirely
// from the environment per the deployment contract.
type Config struct {
	DatabaseURL            string
	DataserviceAddr        string
	SignalservicePort      int
	ExecutionserviceAddr   string
	TradingMode            string
	SignalCooldown         time.Duration
	DefaultSymbols         []string
	DefaultTimeframes      []string
	ForwarderMaxRetries    int
	ForwarderRetryDelay    time.Duration
	HubSubscriberQueueSize int
	MetricsAddr            string
}

// Load reads a .env file if present (ignored if missing) and then builds a
// Config from the environment, applying defaults for everything the spec
// allows to default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DataserviceAddr:        os.Getenv("DATASERVICE_ADDR"),
		SignalservicePort:      envInt("SIGNALSERVICE_PORT", 50052),
		ExecutionserviceAddr:   envStr("EXECUTIONSERVICE_ADDR", "localhost:50053"),
		TradingMode:            strings.ToLower(envStr("TRADING_MODE", "live")),
		SignalCooldown:         time.Duration(envInt("SIGNAL_COOLDOWN_MINUTES", 15)) * time.Minute,
		DefaultSymbols:         envList("DEFAULT_SYMBOLS", []string{"BTC", "ETH", "SOL", "XRP", "HYPER"}),
		DefaultTimeframes:      envList("DEFAULT_TIMEFRAMES", []string{"5m"}),
		ForwarderMaxRetries:    envInt("FORWARDER_MAX_RETRIES", 3),
		ForwarderRetryDelay:    envDuration("FORWARDER_RETRY_DELAY", time.Second),
		HubSubscriberQueueSize: envInt("HUB_SUBSCRIBER_QUEUE_SIZE", 256),
		MetricsAddr:            envStr("METRICS_ADDR", ":9090"),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.DataserviceAddr == "" {
		return nil, ErrMissingDataserviceAddr
	}

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
