package log

import (
	"context"
	"log/slog"
)

// SlogAdapter prints audit events through an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates an adapter logging at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy logging at level instead of Debug.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event. Errors and rejections are raised to Warn.
func (a *SlogAdapter) Log(event Event) {
	level := a.level
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Source != "" {
		attrs = append(attrs, slog.String("source", event.Source))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
		if event.Frame.Format != "" {
			attrs = append(attrs, slog.String("format", event.Frame.Format))
		}
	case event.Run != nil:
		attrs = append(attrs,
			slog.String("phase", event.Run.Phase.String()),
			slog.String("mode", event.Run.Mode),
			slog.String("state", event.Run.State),
		)
		if event.Run.Phase == RunFinished {
			attrs = append(attrs, slog.Int("errors", event.Run.Errors))
		}
		if event.Run.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Run.Duration))
		}
	case event.Decision != nil:
		attrs = append(attrs,
			slog.String("path", event.Decision.Path),
			slog.String("action", event.Decision.Action.String()),
		)
		if event.Decision.Kind != "" {
			attrs = append(attrs, slog.String("kind", event.Decision.Kind))
		}
		if event.Decision.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Decision.Reason))
		}
		if event.Decision.Action == ActionRejected {
			level = max(level, slog.LevelWarn)
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Kind != "" {
			attrs = append(attrs, slog.String("error_kind", event.Error.Kind))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		level = max(level, slog.LevelWarn)
	}

	a.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
