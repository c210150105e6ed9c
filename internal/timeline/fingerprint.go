package timeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/spboyer/swimlane/internal/events"
)

// fingerprinter computes stable content hashes over messages and inputs,
// memoized by message pointer identity. One fingerprinter is threaded
// through a single build call; the cache is never shared across builds.
type fingerprinter struct {
	cache map[*events.ChatMessage]string
}

func newFingerprinter() *fingerprinter {
	return &fingerprinter{cache: make(map[*events.ChatMessage]string)}
}

// Message hashes a message's role and normalized content. Volatile fields
// (ids, tool call ids) are excluded so re-rolled messages with identical
// content fingerprint identically.
func (f *fingerprinter) Message(msg *events.ChatMessage) string {
	if digest, ok := f.cache[msg]; ok {
		return digest
	}

	var serialized string
	if msg.Content.Blocks != nil {
		// Struct field order gives a deterministic serialization;
		// omitempty drops absent fields.
		data, err := json.Marshal(msg.Content.Blocks)
		if err == nil {
			serialized = string(data)
		}
	} else {
		serialized = msg.Content.Text
	}

	sum := sha256.Sum256([]byte(string(msg.Role) + ":" + serialized))
	digest := hex.EncodeToString(sum[:])
	f.cache[msg] = digest
	return digest
}

// Input hashes an ordered input message sequence by joining the
// per-message digests.
func (f *fingerprinter) Input(msgs []*events.ChatMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, f.Message(m))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
