package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"qadash"`
	Password string `env:"PASSWORD" envDefault:"qadash"`
	Name     string `env:"NAME"     envDefault:"qadash"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// DashboardConfig tunes the active-work overview.
type DashboardConfig struct {
	// CacheTTL is how long an active snapshot is served from Redis. 0 disables caching.
	CacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL"    envDefault:"5s"`
	// ActiveLimit caps the runs and agents in a snapshot.
	ActiveLimit int `env:"DASHBOARD_ACTIVE_LIMIT" envDefault:"50"`
}

// Sanitize applies guardrails to dashboard configuration values.
func (d *DashboardConfig) Sanitize() {
	if d.CacheTTL < 0 {
		d.CacheTTL = 0
	}
	if d.ActiveLimit < 1 {
		d.ActiveLimit = 1
	}
	if d.ActiveLimit > 200 {
		d.ActiveLimit = 200
	}
}
