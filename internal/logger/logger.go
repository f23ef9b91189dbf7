// Package logger provides leveled, structured logging to a file and
// optionally the console.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level    Level  // Minimum log level
	FilePath string // Path to log file; empty disables file output
	MaxSize  int64  // Max file size in bytes before rotation
	Console  bool   // Enable console logging
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".todomcp", "logs", "todomcp.log")
	}
	return Config{
		Level:    INFO,
		FilePath: logPath,
		MaxSize:  10 * 1024 * 1024, // 10MB
		Console:  false,
	}
}

// Logger writes leveled log lines to the configured sinks.
type Logger struct {
	config Config
	mu     sync.Mutex
	file   *os.File
	size   int64
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Init initializes the global logger
func Init(config Config) error {
	var err error
	once.Do(func() {
		globalLogger, err = New(config)
	})
	return err
}

// New creates a new logger instance
func New(config Config) (*Logger, error) {
	l := &Logger{config: config}
	if config.FilePath != "" {
		if err := l.openFile(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Logger) openFile() error {
	dir := filepath.Dir(l.config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(l.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// rotate renames the current file aside and starts a fresh one. Called
// with the mutex held.
func (l *Logger) rotate() {
	if l.file == nil {
		return
	}
	l.file.Close()
	backup := fmt.Sprintf("%s.%s", l.config.FilePath, time.Now().Format("20060102-150405"))
	os.Rename(l.config.FilePath, backup)
	if err := l.openFile(); err != nil {
		l.file = nil
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if l == nil || level < l.config.Level {
		return
	}

	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("2006-01-02 15:04:05.000"), level, msg)
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	line += "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if l.config.MaxSize > 0 && l.size+int64(len(line)) > l.config.MaxSize {
			l.rotate()
		}
		if l.file != nil {
			n, _ := io.WriteString(l.file, line)
			l.size += int64(n)
		}
	}
	if l.config.Console {
		fmt.Fprint(os.Stderr, line)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }

// Info logs a message at INFO level
func (l *Logger) Info(msg string, fields ...Field) { l.log(INFO, msg, fields) }

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, fields ...Field) { l.log(WARN, msg, fields) }

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

// Debug logs to the global logger
func Debug(msg string, fields ...Field) { globalLogger.Debug(msg, fields...) }

// Info logs to the global logger
func Info(msg string, fields ...Field) { globalLogger.Info(msg, fields...) }

// Warn logs to the global logger
func Warn(msg string, fields ...Field) { globalLogger.Warn(msg, fields...) }

// Error logs to the global logger
func Error(msg string, fields ...Field) { globalLogger.Error(msg, fields...) }
