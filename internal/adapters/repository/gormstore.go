package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
	"github.com/okian/halloffame/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultDSN             = ":memory:"
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultSlowQuery       = 200 * time.Millisecond
)

// Operation labels used for logs and metrics.
const (
	opGetAll  = "get_all"
	opGetByID = "get_by_id"
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
	opCount   = "count"
)

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db *gorm.DB

	driver          string
	dsn             string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	autoMigrate     bool
	slowQuery       time.Duration

	logger logger.Logger
}

var _ Store = (*GormStore)(nil)

// Open connects to the configured database and, when enabled, migrates the
// schema. The defaults give an in-memory SQLite database.
func Open(ctx context.Context, opts ...Option) (*GormStore, error) {
	s := &GormStore{
		driver:          DriverSQLite,
		dsn:             defaultDSN,
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxLifetime: defaultConnMaxLifetime,
		autoMigrate:     true,
		slowQuery:       defaultSlowQuery,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}

	var dialector gorm.Dialector
	switch s.driver {
	case DriverSQLite:
		dialector = sqlite.Open(s.dsn)
	case DriverPostgres:
		dialector = postgres.Open(s.dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, s.driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(s.logger, s.slowQuery),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.driver, err)
	}
	s.db = db

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.driver, err)
	}

	if s.driver == DriverSQLite {
		// One connection: an in-memory database lives and dies with it, and
		// SQLite serialises writers anyway.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		if err := db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(s.maxOpenConns)
		sqlDB.SetMaxIdleConns(s.maxIdleConns)
		sqlDB.SetConnMaxLifetime(s.connMaxLifetime)
	}

	if s.autoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	s.logger.Info(ctx, "store opened",
		logger.String("driver", s.driver),
		logger.Any("autoMigrate", s.autoMigrate),
	)
	return s, nil
}

// Migrate creates or updates the people and skills tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&personRow{}, &skillRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Driver returns the configured driver name.
func (s *GormStore) Driver() string { return s.driver }

// Ping checks that the database is reachable.
func (s *GormStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreNotOpened
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetAll returns every person with skills, ordered by person id.
func (s *GormStore) GetAll(ctx context.Context) ([]model.Person, error) {
	start := time.Now()

	var rows []personRow
	err := s.db.WithContext(ctx).
		Preload("Skills", orderByID).
		Order("id ASC").
		Find(&rows).Error
	err = s.finish(ctx, opGetAll, start, err)
	if err != nil {
		return nil, err
	}

	people := make([]model.Person, len(rows))
	for i, row := range rows {
		people[i] = toModel(row)
	}
	return people, nil
}

// GetByID returns the person with the given id or ErrNotFound.
func (s *GormStore) GetByID(ctx context.Context, id int64) (model.Person, error) {
	start := time.Now()

	var row personRow
	err := s.db.WithContext(ctx).
		Preload("Skills", orderByID).
		Where("id = ?", id).
		First(&row).Error
	if err = s.finish(ctx, opGetByID, start, err); err != nil {
		return model.Person{}, err
	}
	return toModel(row), nil
}

// Create inserts the person row and then its skills in submitted order,
// all inside one transaction.
func (s *GormStore) Create(ctx context.Context, p model.Person) error {
	start := time.Now()
	row := toRow(p)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.ID != 0 {
			var n int64
			if err := tx.Model(&personRow{}).Where("id = ?", row.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrAlreadyExists
			}
		}

		skills := row.Skills
		row.Skills = nil
		explicitID := row.ID != 0
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		if explicitID && s.driver == DriverPostgres {
			if err := syncPeopleSequence(tx); err != nil {
				return err
			}
		}
		return insertSkills(tx, row.ID, skills)
	})
	return s.finish(ctx, opCreate, start, err, logger.Int64("id", row.ID))
}

// Update overwrites name and display name of person id and swaps its whole
// skill set for p's skills in one transaction. p.ID is ignored.
func (s *GormStore) Update(ctx context.Context, id int64, p model.Person) error {
	start := time.Now()
	row := toRow(p)

	var displayName any
	if row.DisplayName != nil {
		displayName = *row.DisplayName
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&personRow{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"name":         row.Name,
				"display_name": displayName,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("person_id = ?", id).Delete(&skillRow{}).Error; err != nil {
			return err
		}
		return insertSkills(tx, id, row.Skills)
	})
	return s.finish(ctx, opUpdate, start, err, logger.Int64("id", id))
}

// Delete removes person id and its skills and returns the removed snapshot.
func (s *GormStore) Delete(ctx context.Context, id int64) (model.Person, error) {
	start := time.Now()

	var row personRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Skills", orderByID).Where("id = ?", id).First(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("person_id = ?", id).Delete(&skillRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&personRow{}).Error
	})
	if err = s.finish(ctx, opDelete, start, err, logger.Int64("id", id)); err != nil {
		return model.Person{}, err
	}
	return toModel(row), nil
}

// Count returns the number of stored people.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()

	var n int64
	err := s.db.WithContext(ctx).Model(&personRow{}).Count(&n).Error
	if err = s.finish(ctx, opCount, start, err); err != nil {
		return 0, err
	}
	return n, nil
}

// insertSkills writes skills for personID in slice order so that store
// assigned ids follow submission order.
func insertSkills(tx *gorm.DB, personID int64, skills []skillRow) error {
	if len(skills) == 0 {
		return nil
	}
	for i := range skills {
		skills[i].ID = 0
		skills[i].PersonID = personID
	}
	return tx.Create(&skills).Error
}

// syncPeopleSequence moves the postgres id sequence past caller supplied ids
// so that later store assigned ids do not collide with them.
func syncPeopleSequence(tx *gorm.DB) error {
	return tx.Exec(
		"SELECT setval(pg_get_serial_sequence('people', 'id'), (SELECT COALESCE(MAX(id), 1) FROM people))",
	).Error
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// finish maps driver errors onto the package sentinels and records the
// operation outcome.
func (s *GormStore) finish(ctx context.Context, op string, start time.Time, err error, fields ...logger.Field) error {
	err = classify(err)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrAlreadyExists):
		outcome = "conflict"
		s.logger.Warn(ctx, "store refused duplicate person", append(fields, logger.String("op", op), logger.Error(err))...)
	case errors.Is(err, ErrRejected):
		outcome = "rejected"
		s.logger.Warn(ctx, "store rejected write", append(fields, logger.String("op", op), logger.Error(err))...)
	default:
		outcome = "error"
		s.logger.Error(ctx, "store operation failed", append(fields, logger.String("op", op), logger.Error(err))...)
	}

	metrics.RecordRepositoryOperation(op, outcome, latencyMs)
	return err
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrRejected):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated),
		isSQLiteRejection(err):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	default:
		return fmt.Errorf("repository: %w", err)
	}
}

// SQLite extended result codes for constraint failures that the sqlite
// dialector does not translate.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
)

// sqliteCoder is implemented by the sqlite driver's error type.
type sqliteCoder interface {
	Code() int
}

func isSQLiteRejection(err error) bool {
	var coded sqliteCoder
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() {
	case sqliteConstraintCheck, sqliteConstraintForeignKey, sqliteConstraintNotNull:
		return true
	}
	return false
}
