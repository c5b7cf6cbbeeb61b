// Package logger builds the process-wide slog logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"ranchdesk/internal/platform/config"
	"ranchdesk/pkg/requestcontext"
)

// New returns a structured logger writing to stdout and installs it as the
// slog default.
func New(cfg config.LogConfig) *slog.Logger {
	l := NewWithWriter(os.Stdout, cfg)
	slog.SetDefault(l)
	return l
}

// NewWithWriter builds a logger without touching the slog default.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(contextHandler{Handler: handler})
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler adds request_id to every record logged with a *Context call.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}
