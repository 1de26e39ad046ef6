package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Logger fans out to two sinks: the terminal at the configured level,
// and a per-run log file that always captures the full debug trail.
type Logger struct {
	console *log.Logger
	file    *log.Logger
	f       *os.File
}

// NewLogger creates the logs directory if needed and opens a fresh
// timestamped log file inside it.
func NewLogger(level, dir string) (*Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(dir, fmt.Sprintf("sitescout_%s.log", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	console := log.NewWithOptions(os.Stderr, log.Options{
		Level: lvl,
	})
	fileLog := log.NewWithOptions(file, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
	})

	return &Logger{
		console: console,
		file:    fileLog,
		f:       file,
	}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	discard := log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
	return &Logger{console: discard, file: discard}
}

func (l *Logger) Debug(msg interface{}, keyvals ...interface{}) {
	l.console.Debug(msg, keyvals...)
	l.file.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg interface{}, keyvals ...interface{}) {
	l.console.Info(msg, keyvals...)
	l.file.Info(msg, keyvals...)
}

func (l *Logger) Warn(msg interface{}, keyvals ...interface{}) {
	l.console.Warn(msg, keyvals...)
	l.file.Warn(msg, keyvals...)
}

func (l *Logger) Error(msg interface{}, keyvals ...interface{}) {
	l.console.Error(msg, keyvals...)
	l.file.Error(msg, keyvals...)
}

// Path returns the log file location, empty when there is no file sink.
func (l *Logger) Path() string {
	if l.f == nil {
		return ""
	}
	return l.f.Name()
}

func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
