package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const logFilePrefix = "tpn-"

var numberedLogFile = regexp.MustCompile(`^tpn-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one log file per ISO week, starting a numbered
// file when the current one reaches maxFileSize.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize int64
	now         func() time.Time
}

// NewRotatingLogger creates a rotating logger. A maxFileSize of zero
// disables size-based rotation.
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// weekKey returns the ISO week in YYYY-Www form
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(rl.now())
	full := rl.maxFileSize > 0 && rl.currentSize+int64(len(p)) > rl.maxFileSize

	if rl.currentFile == nil || week != rl.currentWeek || full {
		if err := rl.rotate(week, full && week == rl.currentWeek); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize += int64(n)
	return n, err
}

// rotate opens the file for week; caller holds the lock
func (rl *RotatingLogger) rotate(week string, sizeRotation bool) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	name := rl.pickFile(week, sizeRotation)
	path := filepath.Join(rl.logDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	rl.currentFile = file
	rl.currentWeek = week
	rl.currentSize = size
	return nil
}

// pickFile returns the file name to append to for week
func (rl *RotatingLogger) pickFile(week string, sizeRotation bool) string {
	numbered := func(n int) string {
		return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, n)
	}

	highest, size := rl.highestNumbered(week)
	if sizeRotation {
		return numbered(highest + 1)
	}
	if highest > 0 {
		if rl.maxFileSize == 0 || size < rl.maxFileSize {
			return numbered(highest)
		}
		return numbered(highest + 1)
	}

	base := logFilePrefix + week + ".log"
	info, err := os.Stat(filepath.Join(rl.logDir, base))
	if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
		return base
	}
	return numbered(1)
}

// highestNumbered finds the highest numbered file for week and its size
func (rl *RotatingLogger) highestNumbered(week string) (int, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, logFilePrefix+week+"_??.log"))

	highest := 0
	var size int64
	for _, match := range matches {
		m := numberedLogFile.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num > highest {
			highest = num
			if info, err := os.Stat(match); err == nil {
				size = info.Size()
			}
		}
	}
	return highest, size
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rl.now().Add(-rl.retention)
	deleted := 0

	rl.mu.Lock()
	current := ""
	if rl.currentFile != nil {
		current = filepath.Base(rl.currentFile.Name())
	}
	rl.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deleted++
			}
		}
	}

	if deleted > 0 {
		// console only, the file handler may be the one being cleaned
		fmt.Printf("Cleaned up %d old log files\n", deleted)
	}

	return nil
}

// Close closes the current log file
func (rl *RotatingLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}

// SetupLogger builds a logger writing text to the console and JSON to a
// rotating file. If the log directory is unusable it falls back to the
// console alone and returns a nil rotator.
func SetupLogger(logDir string, retentionWeeks int, maxFileSize int64, consoleLevel, fileLevel slog.Level) (*slog.Logger, *RotatingLogger) {
	consoleHandler := newConsoleHandler(os.Stdout, consoleLevel)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		l := slog.New(consoleHandler)
		l.Error("Failed to create logs directory", "error", err)
		return l, nil
	}

	rotator := NewRotatingLogger(logDir, retentionWeeks, maxFileSize)

	rotator.mu.Lock()
	err := rotator.rotate(weekKey(rotator.now()), false)
	rotator.mu.Unlock()
	if err != nil {
		l := slog.New(consoleHandler)
		l.Error("Failed to initialize rotating logger", "error", err)
		return l, nil
	}

	fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: fileLevel})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rotator
}

// newConsoleHandler writes human-readable records, coloured only when f
// is a terminal
func newConsoleHandler(f *os.File, level slog.Level) slog.Handler {
	return tint.NewHandler(f, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()),
	})
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
