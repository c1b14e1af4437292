package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Store    StoreConfig
	Check    CheckConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig configures the MySQL audit trail. Only consulted when
// AUDIT_BACKEND=mysql.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"app"`
	Password        string        `envconfig:"DB_PASSWORD" default:"apppassword"`
	Name            string        `envconfig:"DB_NAME" default:"humancheck"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// StoreConfig selects the nonce store backing. Memory is the single
// instance default; redis shares nonce state across instances.
type StoreConfig struct {
	Backend       string        `envconfig:"STORE_BACKEND" default:"memory"`
	NonceTTL      time.Duration `envconfig:"NONCE_TTL" default:"2m"`
	NonceGrace    time.Duration `envconfig:"NONCE_GRACE" default:"5m"`
	SweepInterval time.Duration `envconfig:"NONCE_SWEEP_INTERVAL" default:"1m"`
}

// CheckConfig tunes the scoring and decision policy.
type CheckConfig struct {
	ThresholdBase   float64       `envconfig:"CHECK_THRESHOLD_BASE" default:"0.6"`
	ChallengeMargin float64       `envconfig:"CHECK_CHALLENGE_MARGIN" default:"0.15"`
	MaxRaise        float64       `envconfig:"CHECK_MAX_RAISE" default:"0.2"`
	MaxLower        float64       `envconfig:"CHECK_MAX_LOWER" default:"0.15"`
	HighWatermark   float64       `envconfig:"CHECK_HIGH_WATERMARK" default:"0.9"`
	LowWatermark    float64       `envconfig:"CHECK_LOW_WATERMARK" default:"0.2"`
	PowBits         int           `envconfig:"CHECK_POW_BITS" default:"12"`
	MinSolveMS      int64         `envconfig:"CHECK_MIN_SOLVE_MS" default:"300"`
	MaxSolveMS      int64         `envconfig:"CHECK_MAX_SOLVE_MS" default:"600000"`
	RateWindow      time.Duration `envconfig:"CHECK_RATE_WINDOW" default:"30m"`
	RateShards      int           `envconfig:"CHECK_RATE_SHARDS" default:"16"`
	IssuePerMinute  int           `envconfig:"CHECK_ISSUE_PER_MINUTE" default:"30"`
}

// AuditConfig selects the audit trail backend: log (default) or mysql.
type AuditConfig struct {
	Backend string `envconfig:"AUDIT_BACKEND" default:"log"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
