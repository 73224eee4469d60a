// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	xglog "github.com/ManuGH/thesisgrey/internal/log"
)

const slowQueryThreshold = 200 * time.Millisecond

// zerologAdapter routes gorm's logging into the component logger.
type zerologAdapter struct {
	level gormlogger.LogLevel
}

func newLogger() gormlogger.Interface {
	return &zerologAdapter{level: gormlogger.Warn}
}

func (l *zerologAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *zerologAdapter) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logger := xglog.WithComponentFromContext(ctx, "gormstore")
		logger.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logger := xglog.WithComponentFromContext(ctx, "gormstore")
		logger.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologAdapter) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logger := xglog.WithComponentFromContext(ctx, "gormstore")
		logger.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	logger := xglog.WithComponentFromContext(ctx, "gormstore")

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		query, rows := fc()
		logger.Error().Err(err).Str("sql", query).Int64("rows", rows).
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).Msg("query failed")
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		query, rows := fc()
		logger.Warn().Str("sql", query).Int64("rows", rows).
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).Msg("slow query")
	case l.level >= gormlogger.Info:
		query, rows := fc()
		logger.Debug().Str("sql", query).Int64("rows", rows).
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).Msg("query")
	}
}
