// pkg/logging/logging.go - timestamped leveled logging for the IGP Tools maintenance utilities.
//
// Every tool writes the same two streams: colored timestamped lines on the
// console, and a plain-text mirror under C:\ProgramData\IGPTools\logs so that
// unattended runs (Task Scheduler) leave a trail an operator can read later.

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a LogLevel. Unknown values
// fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LevelForVerbosity maps repeated -v flags to a LogLevel.
// 0 => ERROR, 1 => WARN, 2 => INFO, 3+ => DEBUG.
func LevelForVerbosity(verbosity int) LogLevel {
	switch verbosity {
	case 0:
		return LevelError
	case 1:
		return LevelWarn
	case 2:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Logger writes leveled, timestamped log lines to the console and,
// when file logging is enabled, to a per-tool log file.
type Logger struct {
	mu       sync.RWMutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *os.File
}

// singleton instance shared by the package-level logging functions
var (
	instance   *Logger
	instanceMu sync.Mutex
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

// EnableANSIConsole enables virtual terminal processing so ANSI colors
// render in the Windows console.
func EnableANSIConsole() {
	for _, stream := range []*os.File{os.Stdout, os.Stderr} {
		handle := windows.Handle(stream.Fd())
		var mode uint32
		if err := windows.GetConsoleMode(handle, &mode); err == nil {
			mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
			_ = windows.SetConsoleMode(handle, mode)
		}
	}
}

// New creates a console-only Logger at the given level.
func New(level LogLevel) *Logger {
	EnableANSIConsole()
	return &Logger{
		logger:   log.New(os.Stdout, "", 0),
		logLevel: level,
	}
}

// Init points the package-level singleton at a log file for the named
// tool under baseDir. Calling it again replaces the singleton, so each
// tool's main should call it exactly once.
func Init(baseDir, tool string, level LogLevel) error {
	l, err := newFileLogger(baseDir, tool, level)
	if err != nil {
		return err
	}
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil && instance.logFile != nil {
		instance.logFile.Close()
	}
	instance = l
	return nil
}

// newFileLogger creates a Logger that mirrors output into
// <baseDir>\<tool>.log, appending across runs.
func newFileLogger(baseDir, tool string, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", baseDir, err)
	}
	logPath := filepath.Join(baseDir, tool+".log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	EnableANSIConsole()
	return &Logger{
		logger:   log.New(io.MultiWriter(os.Stdout, f), "", 0),
		logLevel: level,
		logFile:  f,
	}, nil
}

// CloseLogger closes the singleton's log file if one is open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	if instance.logFile != nil {
		if err := instance.logFile.Close(); err != nil {
			fmt.Printf("Failed to close log file: %v\n", err)
		}
		instance.logFile = nil
	}
}

// SetLevel changes the active log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = level
}

// logMessage writes a single leveled line. Key-value pairs are appended
// in k=v form so the log files stay grep-friendly.
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.logger == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}
	if level > l.logLevel {
		return
	}

	ts := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %-5s %s", ts, level.String(), message)
	for i := 0; i < len(keyValues); i += 2 {
		if i+1 < len(keyValues) {
			line += fmt.Sprintf(" %v=%v", keyValues[i], keyValues[i+1])
		}
	}
	l.logger.Println(line)
	if l.logFile != nil {
		l.logFile.Sync()
	}
}

// colorPrintf prints a colored timestamped message at the given level.
func (l *Logger) colorPrintf(level LogLevel, color, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.logger == nil || level > l.logLevel {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.logger.Printf("%s[%s] %s%s", color, ts, msg, colorReset)
}

// Printf prints a regular timestamped message regardless of level.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.logger.Printf("[%s] %s", ts, msg)
}

// Info prints an informational message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.colorPrintf(LevelInfo, colorReset, format, v...)
}

// Success prints a success message in green. Success lines print at every
// verbosity; an operator should see positive confirmation even at -v 0.
func (l *Logger) Success(format string, v ...interface{}) {
	l.colorPrintf(LevelError, colorGreen, format, v...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, v ...interface{}) {
	l.colorPrintf(LevelError, colorRed, format, v...)
}

// Warning prints a warning message in yellow.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.colorPrintf(LevelWarn, colorYellow, format, v...)
}

// Debug prints a debug message in blue.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.colorPrintf(LevelDebug, colorBlue, format, v...)
}

// Fatal prints an error message in red and exits.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Error(format, v...)
	os.Exit(1)
}

// The package-level functions log structured messages with key-value
// pairs through the singleton created by Init. Before Init runs they
// degrade to plain console output rather than dropping the message.

func singleton() *Logger {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(LevelInfo)
	}
	return instance
}

// Info logs an informational message with k=v pairs.
func Info(message string, keyValues ...interface{}) {
	singleton().logMessage(LevelInfo, message, keyValues...)
}

// Warn logs a warning message with k=v pairs.
func Warn(message string, keyValues ...interface{}) {
	singleton().logMessage(LevelWarn, message, keyValues...)
}

// Error logs an error message with k=v pairs.
func Error(message string, keyValues ...interface{}) {
	singleton().logMessage(LevelError, message, keyValues...)
}

// Debug logs a debug message with k=v pairs.
func Debug(message string, keyValues ...interface{}) {
	singleton().logMessage(LevelDebug, message, keyValues...)
}
