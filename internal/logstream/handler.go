package logstream

import (
	"context"
	"log/slog"
	"time"
)

// Handler is an slog.Handler that forwards every record to a Hub in
// addition to whatever the wrapped handler does, so the process logger
// itself is the source of the log stream.
type Handler struct {
	next slog.Handler
	hub  *Hub
}

// Wrap returns a Handler that publishes to hub and delegates everything
// else (level filtering, attribute handling, output) to next.
func Wrap(next slog.Handler, hub *Hub) *Handler {
	return &Handler{next: next, hub: hub}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	h.hub.Publish(Record{
		Time:    rec.Time.Format(time.RFC3339),
		Level:   rec.Level.String(),
		Message: rec.Message,
	})

	return h.next.Handle(ctx, rec)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), hub: h.hub}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), hub: h.hub}
}
