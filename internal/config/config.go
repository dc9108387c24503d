// Package config loads server settings from the environment, optionally
// overlaid by a YAML file
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "RPG_"

// Storage backends
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Broadcast modes
const (
	BroadcastWebsocket = "websocket"
	BroadcastRedis     = "redis"
	BroadcastNone      = "none"
)

// Config holds every server setting
type Config struct {
	GRPCPort int `env:"GRPC_PORT" envDefault:"50051" yaml:"grpc_port"`
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080" yaml:"http_port"`

	Store      string   `env:"STORE" envDefault:"memory" yaml:"store"`
	RedisAddrs []string `env:"REDIS_ADDRS" envDefault:"localhost:6379" envSeparator:"," yaml:"redis_addrs"`
	RedisPool  int      `env:"REDIS_POOL_SIZE" envDefault:"10" yaml:"redis_pool_size"`
	RedisTLS   bool     `env:"REDIS_TLS" yaml:"redis_tls"`
	SQLitePath string   `env:"SQLITE_PATH" envDefault:"data/tabletop.db" yaml:"sqlite_path"`

	Broadcast      string   `env:"BROADCAST" envDefault:"websocket" yaml:"broadcast"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," yaml:"allowed_origins"`

	CommitAttempts   int           `env:"COMMIT_ATTEMPTS" envDefault:"3" yaml:"commit_attempts"`
	RetryInterval    time.Duration `env:"RETRY_INTERVAL" envDefault:"50ms" yaml:"retry_interval"`
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"2s" yaml:"broadcast_timeout"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`

	// GameMasters seeds game master assignments as session_id:user_id pairs
	GameMasters []string `env:"GAME_MASTERS" envSeparator:"," yaml:"game_masters"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`
}

// Load reads the environment, then applies the YAML file at path when one
// is given. Values in the file win over the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse config file "+path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ports, backends and tunables
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRange("grpc_port", c.GRPCPort, 1, 65535, vb)
	errors.ValidateRange("http_port", c.HTTPPort, 1, 65535, vb)
	errors.ValidateEnum("store", c.Store, []string{StoreRedis, StoreSQLite, StoreMemory}, vb)
	errors.ValidateEnum("broadcast", c.Broadcast, []string{BroadcastWebsocket, BroadcastRedis, BroadcastNone}, vb)
	errors.ValidateEnum("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}, vb)
	errors.ValidateRange("commit_attempts", c.CommitAttempts, 1, 10, vb)

	if c.Store == StoreRedis || c.Broadcast == BroadcastRedis {
		if len(c.RedisAddrs) == 0 {
			vb.RequiredField("redis_addrs")
		}
		if c.RedisPool < 1 {
			vb.Field("redis_pool_size", "must be at least 1")
		}
	}
	if c.Store == StoreSQLite {
		errors.ValidateRequired("sqlite_path", c.SQLitePath, vb)
	}
	if c.GRPCPort == c.HTTPPort {
		vb.Field("http_port", "must differ from grpc_port")
	}
	for i, pair := range c.GameMasters {
		if _, _, ok := SplitAssignment(pair); !ok {
			vb.Fieldf(fmt.Sprintf("game_masters[%d]", i), "must look like session_id:user_id, got %q", pair)
		}
	}
	if c.RetryInterval < 0 {
		vb.Field("retry_interval", "cannot be negative")
	}
	if c.BroadcastTimeout <= 0 {
		vb.Field("broadcast_timeout", "must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		vb.Field("shutdown_timeout", "must be positive")
	}

	return vb.Build()
}

// SplitAssignment splits a session_id:user_id pair
func SplitAssignment(pair string) (sessionID, userID string, ok bool) {
	sessionID, userID, found := strings.Cut(pair, ":")
	sessionID = strings.TrimSpace(sessionID)
	userID = strings.TrimSpace(userID)
	if !found || sessionID == "" || userID == "" {
		return "", "", false
	}
	return sessionID, userID, true
}
