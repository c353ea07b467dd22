package store

import (
	"context"
	"errors"
	"time"

	"songbook-api-go/logcolors"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger routes gorm's logging through logrus.
type GormLogger struct {
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a gorm logger with the given level.
func NewGormLogger(level logger.LogLevel) *GormLogger {
	return &GormLogger{
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	copy := *l
	copy.level = level
	return &copy
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Info {
		return
	}
	log.WithField("data", data).Infof("%s %s", logcolors.LogStore, msg)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Warn {
		return
	}
	log.WithField("data", data).Warnf("%s %s", logcolors.LogStore, msg)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Error {
		return
	}
	log.WithField("data", data).Errorf("%s %s", logcolors.LogStore, msg)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		log.WithFields(log.Fields{"rows": rows, "elapsed": elapsed.String()}).
			Errorf("%s %v: %s", logcolors.LogStore, err, sql)
	case elapsed > l.slowThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		log.WithFields(log.Fields{"rows": rows, "elapsed": elapsed.String()}).
			Warnf("%s Slow query: %s", logcolors.LogStore, sql)
	case l.level >= logger.Info:
		sql, rows := fc()
		log.WithFields(log.Fields{"rows": rows, "elapsed": elapsed.String()}).
			Debugf("%s %s", logcolors.LogStore, sql)
	}
}
