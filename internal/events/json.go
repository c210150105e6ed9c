package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MarshalJSON emits plain text content as a JSON string and structured
// content as a block array.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts both the string and the block-array wire shapes.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = Content{Text: text}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("message content is neither string nor block list: %w", err)
	}
	*c = Content{Blocks: blocks}
	return nil
}

// wireEvent is the flat on-the-wire shape shared by all event kinds. The
// in-memory types differ per kind, so marshaling goes through this
// envelope rather than the structs directly.
type wireEvent struct {
	Event     Kind       `json:"event"`
	UUID      string     `json:"uuid,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Completed *time.Time `json:"completed,omitempty"`
	SpanID    string     `json:"span_id,omitempty"`

	// model fields
	Model  string         `json:"model,omitempty"`
	Input  []*ChatMessage `json:"input,omitempty"`
	Output *ModelOutput   `json:"output,omitempty"`

	// tool fields (ID doubles as the span id on span markers)
	ID        string            `json:"id,omitempty"`
	Function  string            `json:"function,omitempty"`
	Arguments map[string]any    `json:"arguments,omitempty"`
	Agent     string            `json:"agent,omitempty"`
	Events    []json.RawMessage `json:"events,omitempty"`

	// span fields
	ParentID string         `json:"parent_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	SpanKind string         `json:"type,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MarshalEvent serializes a single event to its wire form.
func MarshalEvent(e Event) ([]byte, error) {
	base := e.Base()
	w := wireEvent{
		Event:     e.Kind(),
		UUID:      base.UUID,
		Timestamp: base.Timestamp,
		Completed: base.Completed,
		SpanID:    base.SpanID,
	}
	switch ev := e.(type) {
	case *ModelEvent:
		w.Model = ev.Model
		w.Input = ev.Input
		w.Output = &ev.Output
	case *ToolEvent:
		w.ID = ev.ID
		w.Function = ev.Function
		w.Arguments = ev.Arguments
		w.Agent = ev.Agent
		for _, nested := range ev.Events {
			data, err := MarshalEvent(nested)
			if err != nil {
				return nil, err
			}
			w.Events = append(w.Events, data)
		}
	case *CompactionEvent:
	case *SpanBeginEvent:
		w.ID = ev.ID
		w.ParentID = ev.ParentID
		w.Name = ev.Name
		w.SpanKind = ev.SpanKind
		w.Metadata = ev.Metadata
	case *SpanEndEvent:
		w.ID = ev.ID
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}
	return json.Marshal(w)
}

// UnmarshalEvent parses a single event from its wire form. Events missing
// a UUID are assigned a fresh one so downstream serialization can always
// reference them.
func UnmarshalEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	base := BaseEvent{
		UUID:      w.UUID,
		Timestamp: w.Timestamp,
		Completed: w.Completed,
		SpanID:    w.SpanID,
	}
	if base.UUID == "" {
		base.UUID = uuid.NewString()
	}
	switch w.Event {
	case KindModel:
		e := &ModelEvent{BaseEvent: base, Model: w.Model, Input: w.Input}
		if w.Output != nil {
			e.Output = *w.Output
		}
		return e, nil
	case KindTool:
		e := &ToolEvent{
			BaseEvent: base,
			ID:        w.ID,
			Function:  w.Function,
			Arguments: w.Arguments,
			Agent:     w.Agent,
		}
		for _, raw := range w.Events {
			nested, err := UnmarshalEvent(raw)
			if err != nil {
				return nil, fmt.Errorf("nested event: %w", err)
			}
			e.Events = append(e.Events, nested)
		}
		return e, nil
	case KindCompaction:
		return &CompactionEvent{BaseEvent: base}, nil
	case KindSpanBegin:
		return &SpanBeginEvent{
			BaseEvent: base,
			ID:        w.ID,
			ParentID:  w.ParentID,
			Name:      w.Name,
			SpanKind:  w.SpanKind,
			Metadata:  w.Metadata,
		}, nil
	case KindSpanEnd:
		return &SpanEndEvent{BaseEvent: base, ID: w.ID}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", w.Event)
	}
}

// DecodeLog reads an event log from r. Both a single JSON array and
// JSON-lines (one event per line) are accepted.
func DecodeLog(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("parse event array: %w", err)
		}
		out := make([]Event, 0, len(raws))
		for i, raw := range raws {
			e, err := UnmarshalEvent(raw)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	}

	var out []Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := UnmarshalEvent([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return out, nil
}

// EncodeLog writes events to w as JSON-lines.
func EncodeLog(w io.Writer, evs []Event) error {
	for i, e := range evs {
		data, err := MarshalEvent(e)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write event log: %w", err)
		}
	}
	return nil
}
