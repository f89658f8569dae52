package repository

import (
	"time"

	"github.com/okian/halloffame/pkg/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithDriver selects the database driver (sqlite or postgres).
func WithDriver(driver string) Option {
	return func(s *GormStore) {
		if driver != "" {
			s.driver = driver
		}
	}
}

// WithDSN sets the driver specific data source name.
func WithDSN(dsn string) Option {
	return func(s *GormStore) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithMaxOpenConns caps open connections. Ignored for sqlite, which always
// runs on a single connection.
func WithMaxOpenConns(n int) Option {
	return func(s *GormStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns caps idle connections kept in the pool.
func WithMaxIdleConns(n int) Option {
	return func(s *GormStore) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime sets how long a pooled connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *GormStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithAutoMigrate creates or updates the schema when the store opens.
func WithAutoMigrate(enabled bool) Option {
	return func(s *GormStore) {
		s.autoMigrate = enabled
	}
}

// WithLogger sets the logger used for store and SQL diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *GormStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSlowQueryThreshold logs statements slower than d as warnings.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *GormStore) {
		if d > 0 {
			s.slowQuery = d
		}
	}
}
