package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var treeBase = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func toolAt(uuid, spanID string, offsetMs int) *ToolEvent {
	return &ToolEvent{
		BaseEvent: BaseEvent{UUID: uuid, Timestamp: treeBase.Add(time.Duration(offsetMs) * time.Millisecond), SpanID: spanID},
		ID:        "call-" + uuid,
		Function:  "noop",
	}
}

func beginAt(id, parentID, name, kind string, offsetMs int) *SpanBeginEvent {
	return &SpanBeginEvent{
		BaseEvent: BaseEvent{UUID: "begin-" + id, Timestamp: treeBase.Add(time.Duration(offsetMs) * time.Millisecond), SpanID: parentID},
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		SpanKind:  kind,
	}
}

func endAt(id string, offsetMs int) *SpanEndEvent {
	return &SpanEndEvent{
		BaseEvent: BaseEvent{UUID: "end-" + id, Timestamp: treeBase.Add(time.Duration(offsetMs) * time.Millisecond), SpanID: id},
		ID:        id,
	}
}

func TestTreeNesting(t *testing.T) {
	evs := []Event{
		beginAt("outer", "", "outer", "agent", 0),
		beginAt("inner", "outer", "inner", "", 10),
		toolAt("e1", "inner", 20),
		endAt("inner", 30),
		toolAt("e2", "outer", 40),
		endAt("outer", 50),
	}

	top := Tree(evs)
	require.Len(t, top, 1)

	outer, ok := top[0].(*TreeSpan)
	require.True(t, ok)
	assert.Equal(t, "outer", outer.ID)
	assert.Equal(t, "agent", outer.Kind)
	require.NotNil(t, outer.Begin)
	require.Len(t, outer.Children, 2)

	inner, ok := outer.Children[0].(*TreeSpan)
	require.True(t, ok)
	assert.Equal(t, "inner", inner.ID)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, "e1", inner.Children[0].(Event).Base().UUID)

	assert.Equal(t, "e2", outer.Children[1].(Event).Base().UUID)
}

func TestTreeInterleavedSpans(t *testing.T) {
	// Two spans running in parallel: ownership comes from each event's
	// span id, not from textual nesting.
	evs := []Event{
		beginAt("a", "", "a", "agent", 0),
		beginAt("b", "", "b", "agent", 5),
		toolAt("a1", "a", 10),
		toolAt("b1", "b", 15),
		toolAt("a2", "a", 20),
		endAt("a", 30),
		endAt("b", 35),
	}

	top := Tree(evs)
	require.Len(t, top, 2)

	a := top[0].(*TreeSpan)
	b := top[1].(*TreeSpan)
	require.Len(t, a.Children, 2)
	require.Len(t, b.Children, 1)
	assert.Equal(t, "a1", a.Children[0].(Event).Base().UUID)
	assert.Equal(t, "a2", a.Children[1].(Event).Base().UUID)
	assert.Equal(t, "b1", b.Children[0].(Event).Base().UUID)
}

func TestTreeUnknownSpanFallsBackToTop(t *testing.T) {
	evs := []Event{
		beginAt("a", "", "a", "", 0),
		toolAt("e1", "never-opened", 10),
		endAt("a", 20),
	}

	top := Tree(evs)
	require.Len(t, top, 2)
	assert.Equal(t, "e1", top[1].(Event).Base().UUID)
}

func TestTreeTopLevelEvents(t *testing.T) {
	evs := []Event{
		toolAt("e1", "", 0),
		toolAt("e2", "", 10),
	}

	top := Tree(evs)
	require.Len(t, top, 2)
}

func TestSequenceFlattens(t *testing.T) {
	evs := []Event{
		toolAt("e0", "", 0),
		beginAt("outer", "", "outer", "", 5),
		toolAt("e1", "outer", 10),
		beginAt("inner", "outer", "inner", "", 15),
		toolAt("e2", "inner", 20),
		endAt("inner", 25),
		toolAt("e3", "outer", 30),
		endAt("outer", 35),
	}

	flat := Sequence(Tree(evs))

	var uuids []string
	for _, e := range flat {
		uuids = append(uuids, e.Base().UUID)
	}
	// Span markers are structural only; leaves come back in order.
	assert.Equal(t, []string{"e0", "e1", "e2", "e3"}, uuids)
}
