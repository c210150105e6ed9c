// Package timeline reconstructs a hierarchical execution timeline from the
// flat event log of an agentic run. It infers agent hierarchy, conversation
// threads, re-rolled branches, and utility agents from loosely structured
// model/tool/compaction events, and renders the result as an ASCII swimlane
// diagram.
package timeline

import (
	"time"

	"github.com/spboyer/swimlane/internal/events"
)

// Item is one entry in a span's content: either an *Event leaf or a nested
// *Span. The interface is sealed; insertion order is temporal/structural
// and significant.
type Item interface {
	StartTime() time.Time
	EndTime() time.Time
	TotalTokens() int
	item()
}

// Event wraps a single log event as a timeline leaf.
type Event struct {
	Event events.Event
}

func (*Event) item() {}

// StartTime is the event's timestamp.
func (e *Event) StartTime() time.Time {
	return e.Event.Base().Timestamp
}

// EndTime is the event's completion time when known, else its timestamp.
func (e *Event) EndTime() time.Time {
	if c := e.Event.Base().Completed; c != nil {
		return *c
	}
	return e.StartTime()
}

// TotalTokens is the event's token consumption. Only model events
// contribute; cache reads and writes count toward the total since they
// occupy context window like any other input tokens.
func (e *Event) TotalTokens() int {
	model, ok := e.Event.(*events.ModelEvent)
	if !ok {
		return 0
	}
	usage := model.Output.Usage
	if usage == nil {
		return 0
	}
	return usage.InputTokens + usage.InputTokensCacheRead +
		usage.InputTokensCacheWrite + usage.OutputTokens
}

// Span is a contiguous unit of execution: an agent turn, a tool span, a
// phase like init or scoring, or a synthetic grouping.
type Span struct {
	ID   string
	Name string
	// Kind tags the span's role: "agent", "init", "scorers", a
	// tool-derived kind, or "" for none.
	Kind        string
	Content     []Item
	Branches    []*Branch
	Description string
	// Utility marks short single-turn sub-agents with a system prompt
	// distinct from their caller. Set by classification, default false.
	Utility bool
	Outline *Outline
}

func (*Span) item() {}

// StartTime is the earliest start time among content. Zero if empty.
func (s *Span) StartTime() time.Time {
	return minStartTime(s.Content)
}

// EndTime is the latest end time among content. Zero if empty.
func (s *Span) EndTime() time.Time {
	return maxEndTime(s.Content)
}

// TotalTokens sums tokens over content.
func (s *Span) TotalTokens() int {
	return sumTokens(s.Content)
}

// Branch is a discarded alternative path forked from a span. ForkedAt is
// the UUID of the event in the parent's content where the branch diverged,
// or "" meaning it forked at the very beginning.
type Branch struct {
	ForkedAt string
	Content  []Item
}

// StartTime is the earliest start time among content.
func (b *Branch) StartTime() time.Time {
	return minStartTime(b.Content)
}

// EndTime is the latest end time among content.
func (b *Branch) EndTime() time.Time {
	return maxEndTime(b.Content)
}

// TotalTokens sums tokens over content.
func (b *Branch) TotalTokens() int {
	return sumTokens(b.Content)
}

// OutlineNode references an event by UUID within an agent's outline.
type OutlineNode struct {
	Event    string
	Children []*OutlineNode
}

// Outline is a hierarchical event outline used for auxiliary navigation.
// It round-trips through Dump/Load but carries no build behavior.
type Outline struct {
	Nodes []*OutlineNode
}

// Timeline is a named view over a run's event log: a single root span plus
// metadata. Multiple timelines can interpret the same event stream in
// different ways.
type Timeline struct {
	Name        string
	Description string
	Root        *Span
}

func minStartTime(items []Item) time.Time {
	var earliest time.Time
	for i, item := range items {
		if t := item.StartTime(); i == 0 || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest
}

func maxEndTime(items []Item) time.Time {
	var latest time.Time
	for _, item := range items {
		if t := item.EndTime(); t.After(latest) {
			latest = t
		}
	}
	return latest
}

func sumTokens(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.TotalTokens()
	}
	return total
}
