package events

import (
	"context"
	"log/slog"
)

// LogEvent writes a debug-level summary of a decoded event to slog. The
// attribute set is kept small; full payloads are too noisy even at debug.
func LogEvent(e Event) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"kind", string(e.Kind()),
		"uuid", e.Base().UUID,
		"timestamp", e.Base().Timestamp,
	}

	switch ev := e.(type) {
	case *ModelEvent:
		attrs = append(attrs, "model", ev.Model, "inputMessages", len(ev.Input))
		if ev.Output.Usage != nil {
			attrs = append(attrs, "outputTokens", ev.Output.Usage.OutputTokens)
		}
	case *ToolEvent:
		attrs = append(attrs, "function", ev.Function, "callID", ev.ID)
		if ev.Agent != "" {
			attrs = append(attrs, "agent", ev.Agent)
		}
	case *SpanBeginEvent:
		attrs = append(attrs, "span", ev.Name, "spanKind", ev.SpanKind)
	case *SpanEndEvent:
		attrs = append(attrs, "span", ev.ID)
	}

	slog.Debug("Event decoded", attrs...)
}
