package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/halloffame/pkg/logger"
)

// gormLogger routes GORM diagnostics through the service logger.
// Statements, including failed ones, are logged at debug and slow ones at
// warn. The store reports classified failures itself.
type gormLogger struct {
	log       logger.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

func newGormLogger(l logger.Logger, slowQuery time.Duration) gormlogger.Interface {
	return &gormLogger{log: l, level: gormlogger.Info, slowQuery: slowQuery}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *g
	out.level = level
	return &out
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Debug(ctx, "sql failed",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
	case g.slowQuery > 0 && elapsed > g.slowQuery && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn(ctx, "slow sql",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed),
			logger.Duration("threshold", g.slowQuery),
		)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug(ctx, "sql",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed),
		)
	}
}
