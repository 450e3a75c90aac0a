// Package corelog is statecore's internal structured-logging facility,
// adapted from the teacher's pkg/core/logger.go: same Logger interface
// and JSON/plain dual-mode defaultLogger, trimmed of the request-id/
// context extraction that belonged to the teacher's HTTP layer.
package corelog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is the structured logging capability internal statecore
// packages log through (at present only persist.Manager). Host
// applications are never forced to depend on this — it only backs the
// diagnostic output statecore itself emits, not the LogAction bus path.
type Logger interface {
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
}

// Config controls logger output shape.
type Config struct {
	JSONOutput bool
	Level      string
}

type defaultLogger struct {
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
	config      Config
	fields      map[string]interface{}
}

// New creates a logger with the given configuration.
func New(config Config) Logger {
	return &defaultLogger{
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags),
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags),
		config:      config,
		fields:      make(map[string]interface{}),
	}
}

// Default returns a plain-text logger at debug level.
func Default() Logger {
	return New(Config{JSONOutput: false, Level: "DEBUG"})
}

type logEntry struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *defaultLogger) log(level string, out *log.Logger, message string) {
	if l.config.JSONOutput {
		entry := logEntry{Timestamp: time.Now().UTC().Format(time.RFC3339), Level: level, Message: message}
		if len(l.fields) > 0 {
			entry.Fields = l.fields
		}
		if data, err := json.Marshal(entry); err == nil {
			out.Output(3, string(data))
			return
		}
		out.Output(3, fmt.Sprintf("[%s] %s %v", level, message, l.fields))
		return
	}
	if len(l.fields) > 0 {
		out.Output(3, fmt.Sprintf("%s %v", message, l.fields))
		return
	}
	out.Output(3, message)
}

func (l *defaultLogger) Error(args ...interface{}) { l.log("ERROR", l.errorLogger, fmt.Sprint(args...)) }
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", l.errorLogger, fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Warn(args ...interface{}) { l.log("WARN", l.warnLogger, fmt.Sprint(args...)) }
func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.log("WARN", l.warnLogger, fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Info(args ...interface{}) { l.log("INFO", l.infoLogger, fmt.Sprint(args...)) }
func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.log("INFO", l.infoLogger, fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Debug(args ...interface{}) {
	l.log("DEBUG", l.debugLogger, fmt.Sprint(args...))
}
func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.log("DEBUG", l.debugLogger, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &defaultLogger{
		errorLogger: l.errorLogger,
		warnLogger:  l.warnLogger,
		infoLogger:  l.infoLogger,
		debugLogger: l.debugLogger,
		config:      l.config,
		fields:      merged,
	}
}
