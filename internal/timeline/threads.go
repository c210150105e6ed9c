package timeline

import (
	"fmt"

	"github.com/spboyer/swimlane/internal/events"
)

// classifyAutoSpans recursively detects conversation threads, regrouping
// flat spans into child spans. Newly created children are visited too.
func (b *builder) classifyAutoSpans(span *Span) {
	b.detectAutoSpans(span)

	for _, item := range span.Content {
		if sp, ok := item.(*Span); ok {
			b.classifyAutoSpans(sp)
		}
	}
}

// thread is one conversation thread under detection: a maximal run of
// model turns where each turn's input continues the previous turn's
// output.
type thread struct {
	items          []Item
	systemPromptFP string
}

// detectAutoSpans splits a flat span's content into conversation threads
// and replaces the content with one synthetic child span per thread.
// Applies only to spans with purely flat content and at least two model
// events carrying output fingerprints; otherwise a no-op. Mutates the
// span in place.
//
// Threading: a model event whose input's last assistant message matches a
// tracked output fingerprint continues that thread. Compaction events
// clear all output tracking (hard boundary) but mark their thread as the
// continuation candidate: the next model event with the same system
// prompt resumes it.
func (b *builder) detectAutoSpans(span *Span) {
	for _, item := range span.Content {
		if _, ok := item.(*Span); ok {
			return
		}
	}

	withOutput := 0
	for _, item := range span.Content {
		if model := asModelEvent(item); model != nil {
			if _, ok := b.outputFingerprint(model); ok {
				withOutput++
			}
		}
	}
	if withOutput < 2 {
		return
	}

	var threads []*thread
	outputFPToThread := make(map[string]int)
	compactionContinue := -1 // thread index, -1 = none
	var preamble []Item

	for _, item := range span.Content {
		if model := asModelEvent(item); model != nil {
			if len(model.Input) > 0 {
				if lastAssistant := lastAssistantMessage(model.Input); lastAssistant != nil {
					fp := b.fp.Message(lastAssistant)
					if idx, ok := outputFPToThread[fp]; ok {
						threads[idx].items = append(threads[idx].items, item)
						delete(outputFPToThread, fp)
						if out, ok := b.outputFingerprint(model); ok {
							outputFPToThread[out] = idx
						}
						continue
					}
				}
			}

			sysFP := b.systemPromptFingerprint(model.Input)
			if compactionContinue >= 0 {
				if sysFP == threads[compactionContinue].systemPromptFP {
					threads[compactionContinue].items = append(threads[compactionContinue].items, item)
					if out, ok := b.outputFingerprint(model); ok {
						outputFPToThread[out] = compactionContinue
					}
					compactionContinue = -1
					continue
				}
				compactionContinue = -1
			}

			threads = append(threads, &thread{items: []Item{item}, systemPromptFP: sysFP})
			if out, ok := b.outputFingerprint(model); ok {
				outputFPToThread[out] = len(threads) - 1
			}
			continue
		}

		if te, ok := item.(*Event); ok && te.Event.Kind() == events.KindCompaction {
			clear(outputFPToThread)
			if len(threads) > 0 {
				last := threads[len(threads)-1]
				last.items = append(last.items, item)
				compactionContinue = len(threads) - 1
			} else {
				preamble = append(preamble, item)
			}
			continue
		}

		// Other non-model events ride along with the active thread.
		if len(threads) > 0 {
			last := threads[len(threads)-1]
			last.items = append(last.items, item)
		} else {
			preamble = append(preamble, item)
		}
	}

	if len(threads) <= 1 {
		return
	}

	// Group threads by system prompt fingerprint, first-occurrence order.
	// Threads sharing a prompt share a display name.
	var promptOrder []string
	promptThreads := make(map[string][]int)
	for i, th := range threads {
		if _, ok := promptThreads[th.systemPromptFP]; !ok {
			promptOrder = append(promptOrder, th.systemPromptFP)
		}
		promptThreads[th.systemPromptFP] = append(promptThreads[th.systemPromptFP], i)
	}

	names := make([]string, len(threads))
	for groupNum, fp := range promptOrder {
		name := "Agent"
		if len(promptOrder) > 1 {
			name = fmt.Sprintf("Agent %d", groupNum+1)
		}
		for _, idx := range promptThreads[fp] {
			names[idx] = name
		}
	}

	newContent := append([]Item{}, preamble...)
	for i, th := range threads {
		newContent = append(newContent, &Span{
			ID:      fmt.Sprintf("auto-span-%d", i),
			Name:    names[i],
			Content: th.items,
		})
	}
	span.Content = newContent
}

// asModelEvent returns the item's model event, or nil.
func asModelEvent(item Item) *events.ModelEvent {
	te, ok := item.(*Event)
	if !ok {
		return nil
	}
	model, ok := te.Event.(*events.ModelEvent)
	if !ok {
		return nil
	}
	return model
}

// lastAssistantMessage returns the last assistant message in an input, or
// nil.
func lastAssistantMessage(input []*events.ChatMessage) *events.ChatMessage {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == events.RoleAssistant {
			return input[i]
		}
	}
	return nil
}

// outputFingerprint fingerprints a model event's first output message.
// False when the event has no output choices.
func (b *builder) outputFingerprint(model *events.ModelEvent) (string, bool) {
	if len(model.Output.Choices) == 0 {
		return "", false
	}
	return b.fp.Message(model.Output.Choices[0].Message), true
}

// systemPromptFingerprint fingerprints the system message of an input, or
// "" when none exists.
func (b *builder) systemPromptFingerprint(input []*events.ChatMessage) string {
	for _, msg := range input {
		if msg.Role == events.RoleSystem {
			return b.fp.Message(msg)
		}
	}
	return ""
}
