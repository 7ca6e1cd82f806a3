// Package logger builds the arbor loggers used by the CLI and the batch driver
package logger

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}
}

// New creates a console logger at the given level ("debug", "info", ...)
func New(level string) arbor.ILogger {
	if level == "" {
		level = "warn"
	}
	return arbor.NewLogger().WithConsoleWriter(consoleWriter()).WithLevelFromString(level)
}

// Init replaces the global logger with a console logger at level
func Init(level string) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = New(level)
	return globalLogger
}

// Get returns the global logger, creating a warn-level console logger on
// first use
func Get() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		defer loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = New("warn")
	}
	return globalLogger
}

// Discard returns a logger that writes nothing: it has no writers attached
func Discard() arbor.ILogger {
	return arbor.NewLogger()
}
