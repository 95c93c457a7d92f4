package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Reputation ReputationConfig `yaml:"reputation"`
	Admin      AdminConfig      `yaml:"admin"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
//
// MaxConns is the hard upper bound on concurrent store sessions;
// AcquireTimeout bounds how long a caller may wait for one before the
// pool reports exhaustion. HealthCheckPeriod drives the background probe
// that evicts broken idle connections.
type DatabaseConfig struct {
	DSN               string        `yaml:"dsn"                 env:"DATABASE_DSN"                 env-required:"true"`
	MaxConns          int32         `yaml:"max_conns"           env:"DATABASE_MAX_CONNS"           env-default:"15"`
	MinConns          int32         `yaml:"min_conns"           env:"DATABASE_MIN_CONNS"           env-default:"2"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"   env:"DATABASE_MAX_CONN_LIFETIME"   env-default:"1h"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"  env:"DATABASE_MAX_CONN_IDLE_TIME"  env-default:"30m"`
	AcquireTimeout    time.Duration `yaml:"acquire_timeout"     env:"DATABASE_ACQUIRE_TIMEOUT"     env-default:"5s"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" env:"DATABASE_HEALTH_CHECK_PERIOD" env-default:"1m"`
	MigrateOnStart    bool          `yaml:"migrate_on_start"    env:"DATABASE_MIGRATE_ON_START"    env-default:"true"`
}

// CacheConfig holds cache layer settings. Backend selects the primary
// backend at startup; on redis failure the layer falls back to the
// in-process backend for the remainder of the process lifetime.
type CacheConfig struct {
	Backend       string        `yaml:"backend"        env:"CACHE_BACKEND"        env-default:"memory"` // memory | redis
	RedisAddr     string        `yaml:"redis_addr"     env:"CACHE_REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"CACHE_REDIS_DB"       env-default:"0"`
	UserTTL       time.Duration `yaml:"user_ttl"       env:"CACHE_USER_TTL"       env-default:"10m"`
	RequestTTL    time.Duration `yaml:"request_ttl"    env:"CACHE_REQUEST_TTL"    env-default:"5m"`
	MaxEntries    int           `yaml:"max_entries"    env:"CACHE_MAX_ENTRIES"    env-default:"1000"`
}

// DedupConfig holds similarity thresholds for the deduplication engine.
// LinkThreshold opens a pending duplicate link for human review;
// AutoConfirmThreshold links without review. Operator-documented defaults,
// deliberately configurable.
type DedupConfig struct {
	LinkThreshold        float64 `yaml:"link_threshold"         env:"DEDUP_LINK_THRESHOLD"         env-default:"0.80"`
	AutoConfirmThreshold float64 `yaml:"auto_confirm_threshold" env:"DEDUP_AUTO_CONFIRM_THRESHOLD" env-default:"0.95"`
	MaxCandidates        int     `yaml:"max_candidates"         env:"DEDUP_MAX_CANDIDATES"         env-default:"200"`
}

// ReputationConfig holds the score deltas applied per outcome event.
type ReputationConfig struct {
	FulfilledDelta int `yaml:"fulfilled_delta" env:"REPUTATION_FULFILLED_DELTA" env-default:"2"`
	RejectedDelta  int `yaml:"rejected_delta"  env:"REPUTATION_REJECTED_DELTA"  env-default:"-2"`
	WarningDelta   int `yaml:"warning_delta"   env:"REPUTATION_WARNING_DELTA"   env-default:"-5"`
}

// AdminConfig holds the static admin-id allowlist.
type AdminConfig struct {
	IDs []int64 `yaml:"ids" env:"ADMIN_IDS" env-separator:","`
}

// IsAdmin reports whether the actor is on the allowlist.
func (c AdminConfig) IsAdmin(actorID int64) bool {
	for _, id := range c.IDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
