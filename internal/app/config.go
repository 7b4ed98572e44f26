package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/draftlane/draftlane-backend/internal/platform/envutil"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type Config struct {
	Env     string `yaml:"env"`
	Version string `yaml:"version"`

	HTTPAddr string `yaml:"http_addr"`

	// MagicLinkBase is the customer-facing URL the token gets appended to.
	MagicLinkBase string        `yaml:"magic_link_base"`
	MagicLinkTTL  time.Duration `yaml:"magic_link_ttl"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	SweepInterval time.Duration `yaml:"sweep_interval"`

	Worker WorkerConfig `yaml:"worker"`
}

type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	StaleRunning time.Duration `yaml:"stale_running"`
}

// LoadConfig builds config from env, then overlays the YAML file named by
// CONFIG_FILE when set. Env wins for secrets; the file is for deploy shape.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Env:           envutil.String("APP_ENV", "development"),
		Version:       envutil.String("APP_VERSION", "dev"),
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080"),
		MagicLinkBase: envutil.String("MAGIC_LINK_BASE", "http://localhost:3000/verify"),
		MagicLinkTTL:  envutil.Seconds("MAGIC_LINK_TTL_SECONDS", 30*time.Minute),
		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisChannel:  envutil.String("REDIS_ORDER_CHANNEL", "orders.events"),
		SweepInterval: envutil.Seconds("SWEEP_INTERVAL_SECONDS", 5*time.Minute),
		Worker: WorkerConfig{
			Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
			PollInterval: envutil.Seconds("WORKER_POLL_SECONDS", 1*time.Second),
			MaxAttempts:  envutil.Int("WORKER_MAX_ATTEMPTS", 5),
			RetryDelay:   envutil.Seconds("WORKER_RETRY_DELAY_SECONDS", 30*time.Second),
			StaleRunning: envutil.Seconds("WORKER_STALE_RUNNING_SECONDS", 2*time.Minute),
		},
	}

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.Info("config file loaded", "path", path)
	return cfg, nil
}
