package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/swimlane/internal/events"
)

func TestFingerprintDeterministic(t *testing.T) {
	f1 := newFingerprinter()
	f2 := newFingerprinter()

	// Distinct but content-identical message objects hash identically,
	// across separate fingerprinter instances.
	a := userMsg("find the bug in parser.go")
	b := userMsg("find the bug in parser.go")

	require.Equal(t, f1.Message(a), f1.Message(b))
	require.Equal(t, f1.Message(a), f2.Message(a))
}

func TestFingerprintIgnoresVolatileFields(t *testing.T) {
	f := newFingerprinter()

	a := assistantMsg("msg-1", "done")
	b := assistantMsg("msg-2", "done")

	assert.Equal(t, f.Message(a), f.Message(b), "message ids must not affect the digest")
}

func TestFingerprintRoleMatters(t *testing.T) {
	f := newFingerprinter()

	assert.NotEqual(t, f.Message(userMsg("hello")), f.Message(sysMsg("hello")))
}

func TestFingerprintStructuredContent(t *testing.T) {
	f := newFingerprinter()

	blocks := &events.ChatMessage{
		Role:    events.RoleUser,
		Content: events.Content{Blocks: []events.ContentBlock{{Type: "text", Text: "hello"}}},
	}
	plain := userMsg("hello")

	assert.NotEqual(t, f.Message(blocks), f.Message(plain))

	same := &events.ChatMessage{
		Role:    events.RoleUser,
		Content: events.Content{Blocks: []events.ContentBlock{{Type: "text", Text: "hello"}}},
	}
	assert.Equal(t, f.Message(blocks), f.Message(same))
}

func TestFingerprintIdentityMemoization(t *testing.T) {
	f := newFingerprinter()

	msg := userMsg("original")
	first := f.Message(msg)

	// The cache keys on pointer identity: a content change on the same
	// object is not observed within one build.
	msg.Content.Text = "mutated"
	assert.Equal(t, first, f.Message(msg))

	// A fresh fingerprinter sees the new content.
	assert.NotEqual(t, first, newFingerprinter().Message(msg))
}

func TestFingerprintInputOrder(t *testing.T) {
	f := newFingerprinter()

	a := sysMsg("prompt")
	b := userMsg("question")

	assert.Equal(t, f.Input([]*events.ChatMessage{a, b}), f.Input([]*events.ChatMessage{a, b}))
	assert.NotEqual(t, f.Input([]*events.ChatMessage{a, b}), f.Input([]*events.ChatMessage{b, a}))
}
