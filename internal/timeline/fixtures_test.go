package timeline

import (
	"time"

	"github.com/spboyer/swimlane/internal/events"
)

// Fixture builders for synthetic event logs. Timestamps are offsets in
// milliseconds from a fixed base so scenarios read as simple schedules.

var fixtureBase = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return fixtureBase.Add(time.Duration(ms) * time.Millisecond)
}

func sysMsg(text string) *events.ChatMessage {
	return &events.ChatMessage{Role: events.RoleSystem, Content: events.Content{Text: text}}
}

func userMsg(text string) *events.ChatMessage {
	return &events.ChatMessage{Role: events.RoleUser, Content: events.Content{Text: text}}
}

func assistantMsg(id, text string) *events.ChatMessage {
	return &events.ChatMessage{ID: id, Role: events.RoleAssistant, Content: events.Content{Text: text}}
}

func toolResultMsg(callID, text string) *events.ChatMessage {
	return &events.ChatMessage{Role: events.RoleTool, Content: events.Content{Text: text}, ToolCallID: callID}
}

// newModelEvent builds a model event running [startMs, startMs+durMs] with
// the given input and a single output choice. A nil output leaves the
// event without choices.
func newModelEvent(uuid string, startMs, durMs int, input []*events.ChatMessage, output *events.ChatMessage) *events.ModelEvent {
	e := &events.ModelEvent{
		BaseEvent: events.BaseEvent{UUID: uuid, Timestamp: at(startMs)},
		Model:     "mockllm/model",
		Input:     input,
	}
	if durMs > 0 {
		end := at(startMs + durMs)
		e.Completed = &end
	}
	if output != nil {
		e.Output.Choices = []events.ModelChoice{{Message: output}}
		e.Output.Usage = &events.ModelUsage{InputTokens: 100, OutputTokens: 50}
	}
	return e
}

func newToolEvent(uuid, callID, function string, startMs, durMs int) *events.ToolEvent {
	e := &events.ToolEvent{
		BaseEvent: events.BaseEvent{UUID: uuid, Timestamp: at(startMs)},
		ID:        callID,
		Function:  function,
	}
	if durMs > 0 {
		end := at(startMs + durMs)
		e.Completed = &end
	}
	return e
}

func newCompactionEvent(uuid string, startMs int) *events.CompactionEvent {
	return &events.CompactionEvent{
		BaseEvent: events.BaseEvent{UUID: uuid, Timestamp: at(startMs)},
	}
}

func spanBegin(id, parentID, name, kind string, startMs int) *events.SpanBeginEvent {
	return &events.SpanBeginEvent{
		BaseEvent: events.BaseEvent{UUID: "begin-" + id, Timestamp: at(startMs), SpanID: parentID},
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		SpanKind:  kind,
	}
}

func spanEnd(id string, startMs int) *events.SpanEndEvent {
	return &events.SpanEndEvent{
		BaseEvent: events.BaseEvent{UUID: "end-" + id, Timestamp: at(startMs), SpanID: id},
		ID:        id,
	}
}

// inSpan assigns the owning span id to an event and returns it.
func inSpan[E events.Event](spanID string, e E) E {
	e.Base().SpanID = spanID
	return e
}

// eventLeaf wraps a raw event as a content item, for building trees by
// hand in renderer and classification tests.
func eventLeaf(e events.Event) *Event {
	return &Event{Event: e}
}

// spanNode builds a span with the given leaf events as content.
func spanNode(id, name, kind string, evs ...events.Event) *Span {
	s := &Span{ID: id, Name: name, Kind: kind}
	for _, e := range evs {
		s.Content = append(s.Content, eventLeaf(e))
	}
	return s
}

// collectSpans walks a span tree depth-first and returns every nested span
// (excluding the root itself).
func collectSpans(root *Span) []*Span {
	var out []*Span
	for _, item := range root.Content {
		if sp, ok := item.(*Span); ok {
			out = append(out, sp)
			out = append(out, collectSpans(sp)...)
		}
	}
	return out
}
