package logger

import "github.com/robfig/cron/v3"

// cronLogger routes robfig/cron's internal logging into Logger.
type cronLogger struct {
	log Logger
}

// CronLogger adapts l to the cron.Logger interface.
func CronLogger(l Logger) cron.Logger {
	return cronLogger{log: l.With("component", "cron")}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
