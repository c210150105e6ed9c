package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/swimlane/internal/events"
)

func contentUUIDs(items []Item) []string {
	var out []string
	for _, item := range items {
		if te, ok := item.(*Event); ok {
			out = append(out, te.Event.Base().UUID)
		}
	}
	return out
}

func TestDetectAutoBranchesReRolls(t *testing.T) {
	sys := sysMsg("solve carefully")
	user := userMsg("what is the answer")
	out0 := assistantMsg("a0", "let me think")

	// Three generations from the identical input: the first two were
	// rejected and re-rolled, the third was accepted.
	retryInput := []*events.ChatMessage{sys, user, out0}

	evs := []events.Event{
		newModelEvent("m0", 0, 100, []*events.ChatMessage{sys, user}, out0),
		newModelEvent("m1", 200, 100, retryInput, assistantMsg("r1", "first try")),
		newModelEvent("m2", 400, 100, retryInput, assistantMsg("r2", "second try")),
		newModelEvent("m3", 600, 100, retryInput, assistantMsg("r3", "final answer")),
	}

	tl := Build(evs)
	root := tl.Root

	// The accepted generation stays in content.
	assert.Equal(t, []string{"m0", "m3"}, contentUUIDs(root.Content))

	// Rejected generations become branches in chronological order, each
	// forked at the event that produced the shared assistant message.
	require.Len(t, root.Branches, 2)
	assert.Equal(t, []string{"m1"}, contentUUIDs(root.Branches[0].Content))
	assert.Equal(t, []string{"m2"}, contentUUIDs(root.Branches[1].Content))
	assert.Equal(t, "m0", root.Branches[0].ForkedAt)
	assert.Equal(t, "m0", root.Branches[1].ForkedAt)
}

func TestDetectAutoBranchesCompactionBoundary(t *testing.T) {
	sys := sysMsg("prompt")
	user := userMsg("question")
	input := []*events.ChatMessage{sys, user}

	// Identical inputs on both sides of a compaction are not re-rolls:
	// after compaction the conversation legitimately restarts.
	evs := []events.Event{
		newModelEvent("m1", 0, 100, input, assistantMsg("a1", "before")),
		newCompactionEvent("c1", 150),
		newModelEvent("m2", 200, 100, input, assistantMsg("a2", "after")),
	}

	tl := Build(evs)

	assert.Empty(t, tl.Root.Branches)
	assert.Len(t, tl.Root.Content, 3)
}

func TestFindForkedAtToolResult(t *testing.T) {
	tool := newToolEvent("t1", "call-1", "search", 0, 100)
	content := []Item{eventLeaf(tool)}

	input := []*events.ChatMessage{sysMsg("p"), userMsg("q"), toolResultMsg("call-1", "results")}
	assert.Equal(t, "t1", findForkedAt(content, input))

	// Unknown call id: fork at the beginning.
	miss := []*events.ChatMessage{sysMsg("p"), toolResultMsg("call-9", "results")}
	assert.Equal(t, "", findForkedAt(content, miss))
}

func TestFindForkedAtAssistantByID(t *testing.T) {
	model := newModelEvent("m1", 0, 100,
		[]*events.ChatMessage{sysMsg("p"), userMsg("q")}, assistantMsg("a1", "answer"))
	content := []Item{eventLeaf(model)}

	input := []*events.ChatMessage{sysMsg("p"), userMsg("q"), assistantMsg("a1", "answer")}
	assert.Equal(t, "m1", findForkedAt(content, input))
}

func TestFindForkedAtAssistantContentFallback(t *testing.T) {
	// Two model events produced identical text under different message ids.
	// With no id match, content comparison picks the first in content order.
	mA := newModelEvent("mA", 0, 100,
		[]*events.ChatMessage{sysMsg("p"), userMsg("q")}, assistantMsg("x1", "same words"))
	mB := newModelEvent("mB", 200, 100,
		[]*events.ChatMessage{sysMsg("p"), userMsg("q")}, assistantMsg("x2", "same words"))
	content := []Item{eventLeaf(mA), eventLeaf(mB)}

	input := []*events.ChatMessage{sysMsg("p"), assistantMsg("zz", "same words")}
	assert.Equal(t, "mA", findForkedAt(content, input))
}

func TestFindForkedAtUserMessage(t *testing.T) {
	model := newModelEvent("m1", 0, 100,
		[]*events.ChatMessage{sysMsg("p"), userMsg("q")}, assistantMsg("a1", "answer"))
	content := []Item{eventLeaf(model)}

	assert.Equal(t, "", findForkedAt(content, []*events.ChatMessage{sysMsg("p"), userMsg("q")}))
	assert.Equal(t, "", findForkedAt(content, nil))
}

func TestExplicitBranchSpans(t *testing.T) {
	sys := sysMsg("worker prompt")
	user := userMsg("do the work")
	out1 := assistantMsg("a1", "attempting")

	evs := []events.Event{
		spanBegin("span-worker", "", "worker", "agent", 0),
		inSpan("span-worker", newModelEvent("m1", 10, 100, []*events.ChatMessage{sys, user}, out1)),

		spanBegin("span-br", "span-worker", "branch 1", "branch", 300),
		inSpan("span-br", newModelEvent("mB", 310, 100,
			[]*events.ChatMessage{sys, user, out1}, assistantMsg("b1", "abandoned path"))),
		spanEnd("span-br", 420),

		inSpan("span-worker", newModelEvent("m2", 500, 100,
			[]*events.ChatMessage{sys, user, out1, userMsg("keep going")}, assistantMsg("a2", "done"))),
		spanEnd("span-worker", 610),
	}

	tl := Build(evs)

	require.Len(t, tl.Root.Content, 1)
	worker, ok := tl.Root.Content[0].(*Span)
	require.True(t, ok)

	assert.Equal(t, []string{"m1", "m2"}, contentUUIDs(worker.Content))
	require.Len(t, worker.Branches, 1)
	assert.Equal(t, "m1", worker.Branches[0].ForkedAt)
	assert.Equal(t, []string{"mB"}, contentUUIDs(worker.Branches[0].Content))
}
