package timeline

import (
	"strings"

	"github.com/spboyer/swimlane/internal/events"
)

// classifyUtilityAgents marks short single-turn sub-agents whose system
// prompt differs from their caller's. The root is never utility (its
// parent prompt is nil). Recursion passes down the effective prompt: a
// span's own prompt when present, else the inherited one.
func classifyUtilityAgents(node *Span, parentPrompt *string) {
	prompt := systemPrompt(node)

	if parentPrompt != nil && prompt != nil && *prompt != *parentPrompt && isSingleTurn(node) {
		node.Utility = true
	}

	effective := prompt
	if effective == nil {
		effective = parentPrompt
	}
	for _, item := range node.Content {
		if sp, ok := item.(*Span); ok {
			classifyUtilityAgents(sp, effective)
		}
	}
}

// systemPrompt extracts the system prompt text from the first model event
// among a span's direct content. Nil when no model event exists, or when
// the first one carries no system message.
func systemPrompt(span *Span) *string {
	for _, item := range span.Content {
		model := asModelEvent(item)
		if model == nil {
			continue
		}
		for _, msg := range model.Input {
			if msg.Role != events.RoleSystem {
				continue
			}
			if msg.Content.Blocks == nil {
				text := msg.Content.Text
				return &text
			}
			var parts []string
			for _, block := range msg.Content.Blocks {
				if block.Text != "" {
					parts = append(parts, block.Text)
				}
			}
			if len(parts) == 0 {
				return nil
			}
			text := strings.Join(parts, "\n")
			return &text
		}
		return nil // first model event had no system message
	}
	return nil
}

// isSingleTurn reports whether a span is a single turn: exactly one direct
// model event, or exactly two model events with at least one tool event
// strictly between them (a single tool-calling turn).
func isSingleTurn(span *Span) bool {
	var kinds []events.Kind
	for _, item := range span.Content {
		te, ok := item.(*Event)
		if !ok {
			continue
		}
		switch te.Event.Kind() {
		case events.KindModel, events.KindTool:
			kinds = append(kinds, te.Event.Kind())
		}
	}

	modelCount, toolCount := 0, 0
	for _, k := range kinds {
		if k == events.KindModel {
			modelCount++
		} else {
			toolCount++
		}
	}

	if modelCount == 1 {
		return true
	}

	if modelCount == 2 && toolCount >= 1 {
		first, last := -1, -1
		for i, k := range kinds {
			if k == events.KindModel {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		for i := first + 1; i < last; i++ {
			if kinds[i] == events.KindTool {
				return true
			}
		}
	}

	return false
}
