// Package events defines the event records emitted by an agentic run
// (model calls, tool calls, compaction markers, and span begin/end markers)
// plus the parser that turns a flat event log into a span tree.
package events

import "time"

// Kind discriminates event record types on the wire.
type Kind string

const (
	KindModel      Kind = "model"
	KindTool       Kind = "tool"
	KindCompaction Kind = "compaction"
	KindSpanBegin  Kind = "span_begin"
	KindSpanEnd    Kind = "span_end"
)

// BaseEvent holds the fields shared by every event record.
type BaseEvent struct {
	// UUID uniquely identifies the event within a log.
	UUID string
	// Timestamp is when the event started. Required on all events.
	Timestamp time.Time
	// Completed is when the event finished, if known.
	Completed *time.Time
	// SpanID is the id of the span the event belongs to ("" = top level).
	SpanID string
}

// Base returns the event's shared fields.
func (b *BaseEvent) Base() *BaseEvent { return b }

func (b *BaseEvent) treeItem() {}

// Event is the sealed interface over all event record types. Events are
// read-only once decoded: consumers reference them, never mutate them.
type Event interface {
	TreeItem
	Kind() Kind
	Base() *BaseEvent
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is one typed block of structured message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Content is message content: either plain text or typed blocks.
// Blocks being non-nil means the structured form is in effect.
type Content struct {
	Text   string
	Blocks []ContentBlock
}

// IsEmpty reports whether the content carries no text and no blocks.
func (c Content) IsEmpty() bool {
	return c.Text == "" && len(c.Blocks) == 0
}

// Equal reports whether two contents are identical in form and value.
func (c Content) Equal(other Content) bool {
	if (c.Blocks == nil) != (other.Blocks == nil) {
		return false
	}
	if c.Blocks == nil {
		return c.Text == other.Text
	}
	if len(c.Blocks) != len(other.Blocks) {
		return false
	}
	for i := range c.Blocks {
		if c.Blocks[i] != other.Blocks[i] {
			return false
		}
	}
	return true
}

// ChatMessage is one message in a model conversation. Messages are shared
// by pointer across events; consumers key caches on that identity.
type ChatMessage struct {
	ID         string  `json:"id,omitempty"`
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
	ToolCallID string  `json:"tool_call_id,omitempty"` // set on tool-result messages
}

// ModelUsage holds token accounting for one model call. Absent counters
// are zero.
type ModelUsage struct {
	InputTokens           int `json:"input_tokens,omitempty"`
	OutputTokens          int `json:"output_tokens,omitempty"`
	InputTokensCacheRead  int `json:"input_tokens_cache_read,omitempty"`
	InputTokensCacheWrite int `json:"input_tokens_cache_write,omitempty"`
	ReasoningTokens       int `json:"reasoning_tokens,omitempty"`
}

// ModelChoice is one completion choice in a model's output.
type ModelChoice struct {
	Message *ChatMessage `json:"message"`
}

// ModelOutput is the result of a model call.
type ModelOutput struct {
	Choices []ModelChoice `json:"choices,omitempty"`
	Usage   *ModelUsage   `json:"usage,omitempty"`
}

// ModelEvent records one model invocation.
type ModelEvent struct {
	BaseEvent
	Model  string
	Input  []*ChatMessage
	Output ModelOutput
}

func (*ModelEvent) Kind() Kind { return KindModel }

// ToolEvent records one tool invocation. A tool call that ran an agent
// loop carries the spawned agent's name and its nested events.
type ToolEvent struct {
	BaseEvent
	ID        string // tool call id
	Function  string
	Arguments map[string]any
	Agent     string
	Events    []Event
}

func (*ToolEvent) Kind() Kind { return KindTool }

// CompactionEvent marks a context compaction/summarization point.
type CompactionEvent struct {
	BaseEvent
}

func (*CompactionEvent) Kind() Kind { return KindCompaction }

// SpanBeginEvent opens a span. ID is the new span's id; ParentID is the
// enclosing span (""= top level). SpanKind tags the span's role, e.g.
// "agent", "tool", or "branch".
type SpanBeginEvent struct {
	BaseEvent
	ID       string
	ParentID string
	Name     string
	SpanKind string
	Metadata map[string]any
}

func (*SpanBeginEvent) Kind() Kind { return KindSpanBegin }

// SpanEndEvent closes the span with the matching ID.
type SpanEndEvent struct {
	BaseEvent
	ID string
}

func (*SpanEndEvent) Kind() Kind { return KindSpanEnd }
