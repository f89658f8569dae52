// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/halloffame/internal/adapters/repository"
	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
	"github.com/okian/halloffame/pkg/metrics"
)

// ErrNotStarted is returned by data operations before Start succeeds.
var ErrNotStarted = errors.New("service not started")

// pinger is implemented by stores that can report reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// Service implements the API dependencies for the people service.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Store configuration, used when no store is injected.
	driver          string
	dsn             string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	autoMigrate     bool
	slowQuery       time.Duration
	seed            bool

	// ownsStore is true when Start opened the store and Stop must close it.
	ownsStore bool
	started   bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a ready store. Start will not open or migrate anything
// and Stop will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDriver selects the database driver.
func WithDriver(driver string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
		}
	}
}

// WithDSN sets the database data source name.
func WithDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithMaxOpenConns caps open database connections.
func WithMaxOpenConns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns caps idle database connections.
func WithMaxIdleConns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime bounds how long a connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithAutoMigrate toggles schema migration on start.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Service) {
		s.autoMigrate = enabled
	}
}

// WithSlowQueryThreshold sets the slow statement warning threshold.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.slowQuery = d
		}
	}
}

// WithSeed inserts demo people on start when the store is empty.
func WithSeed(enabled bool) Option {
	return func(s *Service) {
		s.seed = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		driver:      repository.DriverSQLite,
		dsn:         ":memory:",
		autoMigrate: true,
		logger:      nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting people service...")

	if s.store == nil {
		store, err := repository.Open(ctx,
			repository.WithDriver(s.driver),
			repository.WithDSN(s.dsn),
			repository.WithMaxOpenConns(s.maxOpenConns),
			repository.WithMaxIdleConns(s.maxIdleConns),
			repository.WithConnMaxLifetime(s.connMaxLifetime),
			repository.WithAutoMigrate(s.autoMigrate),
			repository.WithSlowQueryThreshold(s.slowQuery),
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	if s.seed {
		if err := seedDemoData(ctx, s.store, s.logger); err != nil {
			s.closeOwnedStore(ctx)
			return fmt.Errorf("seed store: %w", err)
		}
	}

	s.started = true
	s.logger.Info(ctx, "people service started", logger.String("driver", s.driverName()))

	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping people service...")
	s.closeOwnedStore(context.Background())
	s.started = false
	s.logger.Info(context.Background(), "people service stopped")
}

// closeOwnedStore closes and forgets a store opened by Start. Injected
// stores are left alone. Callers hold s.mu.
func (s *Service) closeOwnedStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error(ctx, "failed to close store", logger.Error(err))
		}
	}
	s.store = nil
	s.ownsStore = false
}

// driverName prefers the driver reported by the store over the configured
// one. Callers hold s.mu.
func (s *Service) driverName() string {
	if d, ok := s.store.(interface{ Driver() string }); ok {
		return d.Driver()
	}
	return s.driver
}

func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// ListPeople returns every person with skills.
func (s *Service) ListPeople(ctx context.Context) ([]model.Person, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	return store.GetAll(ctx)
}

// GetPerson returns one person or repository.ErrNotFound.
func (s *Service) GetPerson(ctx context.Context, id int64) (model.Person, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Person{}, err
	}

	p, err := store.GetByID(ctx, id)
	switch {
	case err == nil:
		s.logger.Debug(ctx, "person fetched", logger.Int64("id", id), logger.Int("skills", len(p.Skills)))
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn(ctx, "person not found", logger.Int64("id", id))
	}
	return p, err
}

// CreatePerson stores a new person.
func (s *Service) CreatePerson(ctx context.Context, p model.Person) error {
	store, err := s.currentStore()
	if err != nil {
		return err
	}

	if err := store.Create(ctx, p); err != nil {
		s.logger.Warn(ctx, "create person failed", logger.Int64("id", p.ID), logger.Error(err))
		return err
	}
	s.logger.Debug(ctx, "person created",
		logger.Int64("id", p.ID),
		logger.String("name", p.Name),
		logger.Int("skills", len(p.Skills)),
	)
	return nil
}

// UpdatePerson replaces person id with p.
func (s *Service) UpdatePerson(ctx context.Context, id int64, p model.Person) error {
	store, err := s.currentStore()
	if err != nil {
		return err
	}

	if err := store.Update(ctx, id, p); err != nil {
		s.logger.Warn(ctx, "update person failed", logger.Int64("id", id), logger.Error(err))
		return err
	}
	s.logger.Debug(ctx, "person updated", logger.Int64("id", id), logger.Int("skills", len(p.Skills)))
	return nil
}

// DeletePerson removes person id and returns the removed snapshot.
func (s *Service) DeletePerson(ctx context.Context, id int64) (model.Person, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Person{}, err
	}

	p, err := store.Delete(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "delete person failed", logger.Int64("id", id), logger.Error(err))
		return model.Person{}, err
	}
	s.logger.Debug(ctx, "person deleted", logger.Int64("id", id), logger.String("name", p.Name))
	return p, nil
}

// Ready reports whether the service is started and the store reachable.
func (s *Service) Ready(ctx context.Context) error {
	store, err := s.currentStore()
	if err != nil {
		return err
	}
	if p, ok := store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"driver":  s.driverName(),
	}

	if s.started && s.store != nil {
		count, err := s.store.Count(context.Background())
		if err != nil {
			stats["countError"] = err.Error()
		} else {
			stats["totalPeople"] = count
			metrics.UpdatePeopleTotal(count)
		}
	}

	return stats
}
