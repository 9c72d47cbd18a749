package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
	file   *os.File
)

// DefaultPath is ~/.config/midi-selector/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "midi-selector", "debug.log")
}

// Enable starts debug logging to DefaultPath
func Enable() error {
	return EnableFile(DefaultPath())
}

// EnableFile starts debug logging to path, truncating it.
// The terminal belongs to the TUI, so logs only ever go to a file.
func EnableFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel)

	file = f
	logger = zap.New(core).Sugar()
	logger.Named("debug").Info("=== Debug logging started ===")
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		logger.Sync()
		logger = nil
	}
	if file != nil {
		file.Close()
		file = nil
	}
	counters = make(map[string]int)
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	if l := current(); l != nil {
		l.Named(category).Infof(format, args...)
	}
}

// Warn records a failure that does not stop the process
func Warn(category, format string, args ...any) {
	if l := current(); l != nil {
		l.Named(category).Warnf(format, args...)
	}
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	if n <= 0 {
		n = 1
	}
	mu.Lock()
	if logger == nil {
		mu.Unlock()
		return
	}
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

// Errorf logs and returns a formatted error, for paths that report upward too
func Errorf(category, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	if l := current(); l != nil {
		l.Named(category).Error(err.Error())
	}
	return err
}
