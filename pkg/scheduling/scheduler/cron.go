package scheduler

import (
	"github.com/ghdlab/mapflow/pkg/logger"
)

// cronLogger adapts logger.Logger to cron.Logger. cron's routine messages
// ("wake", "run", "schedule") go to debug; skips and recovered panics are
// logged at the level cron reports them.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := logger.Fields(keysAndValues...)
	if msg == "skip" {
		l.log.Warn("tick skipped, previous run still in progress", fields)
		return
	}
	l.log.Debug("cron: "+msg, fields)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := logger.Fields(keysAndValues...)
	fields[logger.FieldError] = err
	l.log.Error("cron: "+msg, fields)
}
