// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-derived setting for both process roles.
// The master and its workers parse the same struct; WorkerIndex selects the
// role (-1 = master).
type Config struct {
	// Environment is the deployment tag (dev/staging/prod) exposed on
	// /api/env. Unset means the endpoint answers 500.
	Environment string `env:"MAPWARS_ENV"`

	Port     int `env:"PORT" envDefault:"8080"`
	BasePort int `env:"BASE_WORKER_PORT" envDefault:"8080"`

	Workers     int `env:"WORKER_COUNT" envDefault:"2"`
	WorkerIndex int `env:"WORKER_INDEX" envDefault:"-1"`

	AdminHeader string `env:"ADMIN_HEADER" envDefault:"x-admin-token"`
	AdminToken  string `env:"ADMIN_TOKEN"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"100ms"`
	WorkerTimeout     time.Duration `env:"WORKER_TIMEOUT" envDefault:"5s"`
	RankedCooldown    time.Duration `env:"RANKED_COOLDOWN" envDefault:"3m"`

	// Optional integrations; the relevant features are skipped when unset.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR"`

	StaticDir string `env:"STATIC_DIR" envDefault:"static"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("WORKER_COUNT must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

// IsWorker reports whether this process was spawned as a worker.
func (c Config) IsWorker() bool { return c.WorkerIndex >= 0 }

// WorkerPort returns the listen port for the given worker index. Ports are
// a pure function of the index so the coordinator can address workers
// without a registry.
func (c Config) WorkerPort(index int) int {
	return c.BasePort + 1 + index
}
