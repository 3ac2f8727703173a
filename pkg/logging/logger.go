package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/model"
)

// ringLogPath is the path to the ring log file.
var ringLogPath string

// ringLogMu protects concurrent writes to the ring log.
var ringLogMu sync.Mutex

// Init initializes the logging system based on configuration.
// It returns a cleanup function to close log files.
func Init(cfg *config.LogConfig) (func(), error) {
	// Rotate log files at startup
	rotatePaths(cfg.Server.Path, cfg.Rings.Path)

	SetRingLogPath(cfg.Rings.Path)

	handler, file, err := setupHandler(cfg.Server.Path, cfg.Server.Level, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	slog.SetDefault(slog.New(handler))

	// Raw output (banners, tables) goes to the console and the log file
	setRawOutput(os.Stdout, file)

	return func() {
		setRawOutput(os.Stdout, nil)
		file.Close()
	}, nil
}

// ParseLevel converts a config level string to a slog.Level. Unknown values map to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupHandler(path, levelStr string, console io.Writer) (handler slog.Handler, file *os.File, err error) {
	level := ParseLevel(levelStr)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	// Open File (Append mode, truncation handled in Init)
	file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	// Console follows the configured level so verbose debug reaches the terminal
	consoleHandler := NewConsoleHandler(console, level)

	captureHandler := slog.NewTextHandler(LatestLog, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	handlers := []slog.Handler{fileHandler, consoleHandler, captureHandler}
	return &multiHandler{handlers: handlers}, file, nil
}

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

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// rotatePaths renames existing log files to .old so each run starts fresh.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			continue
		}

		if _, err := os.Stat(p); err == nil {
			oldPath := p + ".old"
			_ = os.Remove(oldPath)
			_ = os.Rename(p, oldPath)
		}
	}
}

// SetRingLogPath configures the path for the ring log file.
func SetRingLogPath(path string) {
	ringLogMu.Lock()
	defer ringLogMu.Unlock()
	ringLogPath = path
}

// LogRing appends a ring event to the ring log file.
func LogRing(event *model.RingEvent) {
	line := LatestRings.Record(event)

	ringLogMu.Lock()
	defer ringLogMu.Unlock()

	if ringLogPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(ringLogPath), 0o755); err != nil {
		slog.Error("failed to create ring log directory", "error", err)
		return
	}

	f, err := os.OpenFile(ringLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("failed to open ring log", "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		slog.Error("failed to write ring log", "error", err)
	}
}

// FormatRing renders a ring event as a single log line.
// Format: [2006-01-02 15:04:05] [work/schedule] 5.0s id=... - error
func FormatRing(event *model.RingEvent) string {
	ts := event.At
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s/%s] %.1fs id=%s",
		ts.Format("2006-01-02 15:04:05"), event.Kind, event.Source, event.Duration.Seconds(), event.ID)
	if event.Error != "" {
		line += " - " + event.Error
	}
	return line
}
