package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterDropsAllSpans(t *testing.T) {
	tl, _ := serializationFixture()

	filtered := Filter(tl, func(*Span) bool { return false })

	// Event leaves survive; the helper span is gone.
	assert.Equal(t, []string{"m1", "t1"}, contentUUIDs(filtered.Root.Content))
	assert.Empty(t, spanNames(filtered.Root.Content))

	// The original is untouched.
	require.Len(t, tl.Root.Content, 3)
	_, ok := tl.Root.Content[1].(*Span)
	assert.True(t, ok)
}

func TestFilterKeepsEverything(t *testing.T) {
	tl, _ := serializationFixture()

	filtered := Filter(tl, func(*Span) bool { return true })

	assert.Equal(t, Dump(tl), Dump(filtered))
}

func TestFilterPrunesSubtrees(t *testing.T) {
	leaf := spanNode("leaf", "leaf", "", modelWithPrompt("m-leaf", "p", 400))
	drop := &Span{ID: "drop", Name: "drop", Content: []Item{leaf}}
	keep := spanNode("keep", "keep", "", modelWithPrompt("m-keep", "p", 200))
	root := spanNode("root", "main", "agent", modelWithPrompt("m0", "p", 0))
	root.Content = append(root.Content, keep, drop)
	tl := &Timeline{Root: root}

	filtered := Filter(tl, func(s *Span) bool { return s.ID != "drop" })

	// Dropping a span removes its whole subtree: "leaf" never gets asked.
	assert.Equal(t, []string{"keep"}, spanNames(filtered.Root.Content))
}

func TestFilterByUtility(t *testing.T) {
	helper := spanNode("h", "helper", "", modelWithPrompt("mh", "helper prompt", 200))
	helper.Utility = true
	worker := spanNode("w", "worker", "", modelWithPrompt("mw", "worker prompt", 400))
	root := spanNode("root", "main", "agent", modelWithPrompt("m0", "main prompt", 0))
	root.Content = append(root.Content, helper, worker)
	tl := &Timeline{Root: root}

	filtered := Filter(tl, func(s *Span) bool { return !s.Utility })

	assert.Equal(t, []string{"worker"}, spanNames(filtered.Root.Content))
}
