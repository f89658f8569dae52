// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file and HOF_ environment variables on top.
// - Errors returned by Load and Validate wrap this package's sentinels.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Database drivers understood by the service.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the relational backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// Connection pool bounds. SQLite always runs on a single connection.
	DBMaxOpenConns       int `koanf:"db_max_open_conns"`
	DBMaxIdleConns       int `koanf:"db_max_idle_conns"`
	DBConnMaxLifetimeSec int `koanf:"db_conn_max_lifetime_sec"`

	// AutoMigrate creates or updates tables on start.
	AutoMigrate bool `koanf:"auto_migrate"`

	// SeedDemoData inserts two demo people into an empty store.
	SeedDemoData bool `koanf:"seed_demo_data"`

	// SlowQueryMS is the threshold above which statements are logged at warn.
	SlowQueryMS int `koanf:"slow_query_ms"`

	// ShutdownTimeoutSec bounds graceful HTTP shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8080",
		DBDriver:             DriverSQLite,
		DBDSN:                "halloffame.db",
		DBMaxOpenConns:       10,
		DBMaxIdleConns:       5,
		DBConnMaxLifetimeSec: 1800,
		AutoMigrate:          true,
		SeedDemoData:         false,
		SlowQueryMS:          200,
		ShutdownTimeoutSec:   10,
	}
}

// Validate checks the values Load cannot fix up on its own.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown db_driver %q", ErrInvalidConfig, c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ConnMaxLifetime returns DBConnMaxLifetimeSec as a duration.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeSec) * time.Second
}

// SlowQueryThreshold returns SlowQueryMS as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutSec as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
