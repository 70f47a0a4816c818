package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventos/config"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/errors"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultGormSlowThreshold = 200 * time.Millisecond

// sqlLogger routes GORM output through slog. Bound values are never rendered:
// queries carry raw verification tokens, ledger hashes and password hashes.
type sqlLogger struct {
	logger        *slog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var (
	_ gormlogger.Interface    = (*sqlLogger)(nil)
	_ gormlogger.ParamsFilter = (*sqlLogger)(nil)
)

// newGormSlogLogger logs every statement in debug mode; otherwise only slow
// and failed ones.
func newGormSlogLogger(baseLogger *slog.Logger, cfg *config.Config) gormlogger.Interface {
	level := gormlogger.Warn
	if cfg != nil && cfg.Env.Debug {
		level = gormlogger.Info
	}

	return &sqlLogger{
		logger:        baseLogger,
		level:         level,
		slowThreshold: defaultGormSlowThreshold,
	}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cloned := *l
	cloned.level = level

	return &cloned
}

// ParamsFilter drops the bound values so Explain leaves the $n placeholders.
func (l *sqlLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

func (l *sqlLogger) Info(ctx context.Context, msg string, args ...any) {
	l.message(ctx, gormlogger.Info, slog.LevelInfo, msg, args)
}

func (l *sqlLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.message(ctx, gormlogger.Warn, slog.LevelWarn, msg, args)
}

func (l *sqlLogger) Error(ctx context.Context, msg string, args ...any) {
	l.message(ctx, gormlogger.Error, slog.LevelError, msg, args)
}

func (l *sqlLogger) message(ctx context.Context, min gormlogger.LogLevel, level slog.Level, msg string, args []any) {
	if l.level < min || l.logger == nil {
		return
	}

	l.loggerFor(ctx).LogAttrs(ctx, level, "[DB] "+fmt.Sprintf(msg, args...))
}

func (l *sqlLogger) Trace(ctx context.Context, begin time.Time, sqlAndRowsFn func() (string, int64), err error) {
	if l.logger == nil || l.level == gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn

	var (
		level slog.Level
		msg   string
	)
	switch {
	case failed:
		level, msg = slog.LevelError, "[DB] Query failed"
	case slow:
		level, msg = slog.LevelWarn, "[DB] Slow query"
	case l.level >= gormlogger.Info:
		level, msg = slog.LevelDebug, "[DB] Query"
	default:
		return
	}

	sql, rows := sqlAndRowsFn()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		attrs = append(attrs, slog.Any("error", err))
	}
	if slow {
		attrs = append(attrs, slog.Duration("slow_threshold", l.slowThreshold))
	}

	l.loggerFor(ctx).LogAttrs(ctx, level, msg, attrs...)
}

// loggerFor prefers the request-scoped logger so SQL lines carry request_id.
func (l *sqlLogger) loggerFor(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, l.logger)
}
