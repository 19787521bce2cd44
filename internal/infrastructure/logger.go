package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/galtons-data/family-heights/internal/config"
)

// process holds the logger installed by InitializeLogger and the log file it
// appends to, if any.
var process struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Only the first call has an effect; later calls return the
// same logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	process.once.Do(func() {
		var (
			w    io.Writer
			file *os.File
		)
		w, file, err = openOutput(cfg, os.Stderr)
		if err != nil {
			return
		}
		process.mu.Lock()
		process.file = file
		process.mu.Unlock()

		process.logger = NewLogger(cfg, w)
		slog.SetDefault(process.logger)
	})
	return process.logger, err
}

// NewLogger builds a logger writing to w. It leaves the process logger alone,
// so tests and embedded runs can hold several.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLogLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(&runHandler{next: h})
}

// openOutput resolves cfg.Output to a writer. The returned file is non-nil
// when the log file is part of the output and must be closed on shutdown.
func openOutput(cfg config.LoggingConfig, console io.Writer) (io.Writer, *os.File, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return console, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	if output == "file" {
		return f, f, nil
	}
	return io.MultiWriter(console, f), f, nil
}

// runHandler stamps records with the run id of their context, unless the
// logger already carries one, and with the OTel trace id of an active span.
type runHandler struct {
	next    slog.Handler
	bound   bool // run_id was attached with Logger.With
	grouped bool // attributes added now land inside a group
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []slog.Attr
	if id := RunIDFromContext(ctx); id != "" && !h.bound {
		attrs = append(attrs, slog.String(KeyRunID, id))
	}
	if id := TraceIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String(KeySpanTraceID, id))
	}
	r.AddAttrs(attrs...)
	return h.next.Handle(ctx, r)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	if !h.grouped {
		for _, a := range attrs {
			if a.Key == KeyRunID {
				bound = true
			}
		}
	}
	return &runHandler{next: h.next.WithAttrs(attrs), bound: bound, grouped: h.grouped}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{next: h.next.WithGroup(name), bound: h.bound, grouped: true}
}

// parseLogLevel maps a configured level name to a slog level; unknown names
// log at info. "warning" is accepted next to slog's own names.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CloseLogFile closes the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	process.mu.Lock()
	defer process.mu.Unlock()

	if process.file == nil {
		return nil
	}
	err := process.file.Close()
	process.file = nil
	return err
}

// ResetLoggerForTesting lets a test call InitializeLogger again
func ResetLoggerForTesting() {
	CloseLogFile()
	process.logger = nil
	process.once = sync.Once{}
}
