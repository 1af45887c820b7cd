package logging

import (
	"context"
	"log/slog"
)

// teeHandler forwards each record to every wrapped handler that accepts its level.
type teeHandler struct {
	targets []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	var targets []slog.Handler
	for _, h := range handlers {
		if h != nil {
			targets = append(targets, h)
		}
	}
	switch len(targets) {
	case 0:
		return NoopHandler{}
	case 1:
		return targets[0]
	}
	return &teeHandler{targets: targets}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range h.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, target := range h.targets {
		if !target.Enabled(ctx, record.Level) {
			continue
		}
		if err := target.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{targets: h.each(func(target slog.Handler) slog.Handler { return target.WithAttrs(attrs) })}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{targets: h.each(func(target slog.Handler) slog.Handler { return target.WithGroup(name) })}
}

func (h *teeHandler) each(fn func(slog.Handler) slog.Handler) []slog.Handler {
	out := make([]slog.Handler, len(h.targets))
	for i, target := range h.targets {
		out[i] = fn(target)
	}
	return out
}
