package collector

import (
	"tickerfeed/internal/binance/ticker"

	"go.uber.org/zap"
)

// statusLogger logs status transitions. Repeated snapshots with the same
// label and severity, such as every price update, are not logged.
type statusLogger struct {
	logger  *zap.Logger
	last    ticker.StatusReport
	started bool
}

func newStatusLogger(logger *zap.Logger) *statusLogger {
	return &statusLogger{logger: logger}
}

func (l *statusLogger) Publish(s ticker.Snapshot) {
	if l.started && s.Status == l.last {
		return
	}
	l.started = true
	l.last = s.Status

	fields := []zap.Field{
		zap.String("status", s.Status.Label),
		zap.Stringer("severity", s.Status.Severity),
		zap.Stringer("state", s.State),
		zap.Uint64("session", s.Session),
	}
	if s.RetryIn > 0 {
		fields = append(fields, zap.Duration("retry_in", s.RetryIn))
	}

	switch s.Status.Severity {
	case ticker.Error:
		l.logger.Warn("status changed", fields...)
	default:
		l.logger.Info("status changed", fields...)
	}
}
