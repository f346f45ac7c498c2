package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogs records entries written through a logger from NewTestLogger,
// so unit tests can assert on what was logged
type TestLogs struct {
	observed *observer.ObservedLogs
}

// LogEntry a recorded entry
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates an in-memory logger bound to module.
//
//	log, logs := logger.NewTestLogger("settings")
//	m := settings.NewManager(settings.WithLogger(log))
//	...
//	assert.True(t, logs.HasLog("WARN", "settings reply dropped"))
func NewTestLogger(module string) (*CtxZapLogger, *TestLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	cfg := ManagerConfig{}
	l := &CtxZapLogger{
		base:   zap.New(core).With(zap.String("module", module)),
		module: module,
		config: &cfg,
	}
	return l, &TestLogs{observed: observed}
}

// HasLog reports whether an entry with level (INFO, WARN, ...) and message exists
func (t *TestLogs) HasLog(level, message string) bool {
	for _, e := range t.Logs() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

// HasLogWithField also matches one field value
func (t *TestLogs) HasLogWithField(level, message, fieldKey string, fieldValue interface{}) bool {
	for _, e := range t.Logs() {
		if e.Level == level && e.Message == message {
			if val, ok := e.Fields[fieldKey]; ok && val == fieldValue {
				return true
			}
		}
	}
	return false
}

// CountLogs counts entries of a level
func (t *TestLogs) CountLogs(level string) int {
	count := 0
	for _, e := range t.Logs() {
		if e.Level == level {
			count++
		}
	}
	return count
}

// Logs returns a copy of all entries
func (t *TestLogs) Logs() []LogEntry {
	all := t.observed.All()
	logs := make([]LogEntry, 0, len(all))
	for _, e := range all {
		logs = append(logs, LogEntry{
			Level:   strings.ToUpper(e.Level.String()),
			Message: e.Message,
			Fields:  e.ContextMap(),
		})
	}
	return logs
}

// Clear drops recorded entries
func (t *TestLogs) Clear() {
	t.observed.TakeAll()
}
