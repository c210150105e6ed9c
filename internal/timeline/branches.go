package timeline

import (
	"slices"
	"sort"

	"github.com/spboyer/swimlane/internal/events"
)

// processChildren converts a span's child tree items into content, with
// branch awareness. In explicit-branch mode, maximal runs of consecutive
// branch-kind spans become Branch objects; otherwise children convert
// normally and branch detection happens post-hoc. Empty spans are elided
// in both modes.
func (b *builder) processChildren(children []events.TreeItem) ([]Item, []*Branch) {
	if !b.explicitBranches {
		var content []Item
		for _, item := range children {
			node := b.treeItemToNode(item)
			if sp, ok := node.(*Span); ok && len(sp.Content) == 0 {
				continue
			}
			content = append(content, node)
		}
		return content, nil
	}

	var content []Item
	var branches []*Branch
	var run []*events.TreeSpan

	// flushRun converts accumulated branch spans, computing each fork
	// point against the parent content collected so far.
	flushRun := func() {
		for _, span := range run {
			var branchContent []Item
			for _, child := range span.Children {
				node := b.treeItemToNode(child)
				if sp, ok := node.(*Span); ok && len(sp.Content) == 0 {
					continue
				}
				branchContent = append(branchContent, node)
			}
			forkedAt := ""
			if input, ok := branchInput(branchContent); ok {
				forkedAt = findForkedAt(content, input)
			}
			branches = append(branches, &Branch{ForkedAt: forkedAt, Content: branchContent})
		}
		run = nil
	}

	for _, item := range children {
		if sp, ok := item.(*events.TreeSpan); ok && sp.Kind == "branch" {
			run = append(run, sp)
			continue
		}
		flushRun()
		node := b.treeItemToNode(item)
		if sp, ok := node.(*Span); ok && len(sp.Content) == 0 {
			continue
		}
		content = append(content, node)
	}
	flushRun()

	return content, branches
}

// branchInput extracts the input of the first model event in branch
// content. The second return is false when no model event exists.
func branchInput(content []Item) ([]*events.ChatMessage, bool) {
	for _, item := range content {
		te, ok := item.(*Event)
		if !ok {
			continue
		}
		if model, ok := te.Event.(*events.ModelEvent); ok {
			return model.Input, true
		}
	}
	return nil, false
}

// findForkedAt determines a branch's fork point by matching the last
// message of its shared input back to an event in the parent's content.
// Returns the matched event's UUID, or "" for a fork at the beginning.
func findForkedAt(content []Item, branchInput []*events.ChatMessage) string {
	if len(branchInput) == 0 {
		return ""
	}
	last := branchInput[len(branchInput)-1]

	switch last.Role {
	case events.RoleTool:
		// Match the tool result back to the tool call by call id.
		if last.ToolCallID != "" {
			for _, item := range content {
				te, ok := item.(*Event)
				if !ok {
					continue
				}
				if tool, ok := te.Event.(*events.ToolEvent); ok && tool.ID == last.ToolCallID {
					return tool.UUID
				}
			}
		}
		return ""

	case events.RoleAssistant:
		// Match the assistant message to a model event's output by id.
		if last.ID != "" {
			for _, item := range content {
				if out, uuid := firstChoiceMessage(item); out != nil && out.ID == last.ID {
					return uuid
				}
			}
		}
		// Fallback: compare content. First match in content order wins,
		// even when several assistant messages share identical text.
		if !last.Content.IsEmpty() {
			for _, item := range content {
				if out, uuid := firstChoiceMessage(item); out != nil && out.Content.Equal(last.Content) {
					return uuid
				}
			}
		}
		return ""
	}

	// User or system message: fork at the beginning.
	return ""
}

// firstChoiceMessage returns the first output choice's message of a model
// event item, plus the event's UUID. Nil when the item is not a model
// event or has no choices.
func firstChoiceMessage(item Item) (*events.ChatMessage, string) {
	te, ok := item.(*Event)
	if !ok {
		return nil, ""
	}
	model, ok := te.Event.(*events.ModelEvent)
	if !ok || len(model.Output.Choices) == 0 {
		return nil, ""
	}
	return model.Output.Choices[0].Message, model.UUID
}

// detectAutoBranches finds re-rolled model events (identical input
// fingerprints) in a span's content and extracts the earlier occurrences
// into branches. The last occurrence stays in content as the accepted
// turn. Compaction events are hard walls: fingerprints are grouped
// independently within each region they delimit, so re-rolls never match
// across a compaction. Mutates the span in place.
func (b *builder) detectAutoBranches(agent *Span) {
	type branchRange struct {
		start, end int
		input      []*events.ChatMessage
	}

	// Split content into regions at compaction boundaries.
	var regions [][2]int
	regionStart := 0
	for i, item := range agent.Content {
		if te, ok := item.(*Event); ok && te.Event.Kind() == events.KindCompaction {
			regions = append(regions, [2]int{regionStart, i})
			regionStart = i + 1
		}
	}
	regions = append(regions, [2]int{regionStart, len(agent.Content)})

	var ranges []branchRange
	for _, region := range regions {
		// Group model event indices by input fingerprint within the
		// region, preserving first-seen order.
		var order []string
		groups := make(map[string][]int)
		for i := region[0]; i < region[1]; i++ {
			te, ok := agent.Content[i].(*Event)
			if !ok {
				continue
			}
			model, ok := te.Event.(*events.ModelEvent)
			if !ok || len(model.Input) == 0 {
				continue
			}
			fp := b.fp.Input(model.Input)
			if _, seen := groups[fp]; !seen {
				order = append(order, fp)
			}
			groups[fp] = append(groups[fp], i)
		}

		for _, fp := range order {
			indices := groups[fp]
			if len(indices) <= 1 {
				continue
			}
			first := agent.Content[indices[0]].(*Event).Event.(*events.ModelEvent)
			// Each occurrence up to (not including) the next re-roll
			// becomes one branch; the final occurrence stays.
			for k := 0; k+1 < len(indices); k++ {
				ranges = append(ranges, branchRange{
					start: indices[k],
					end:   indices[k+1],
					input: first.Input,
				})
			}
		}
	}

	if len(ranges) == 0 {
		return
	}

	// Remove from the end first so earlier indices stay valid.
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].start > ranges[j].start
	})

	for _, br := range ranges {
		branchContent := slices.Clone(agent.Content[br.start:br.end])
		forkedAt := findForkedAt(agent.Content, br.input)
		agent.Branches = append(agent.Branches, &Branch{
			ForkedAt: forkedAt,
			Content:  branchContent,
		})
		agent.Content = slices.Delete(agent.Content, br.start, br.end)
	}

	// Restore chronological order.
	slices.Reverse(agent.Branches)
}

// classifyBranches recursively detects branches in the span tree. The root
// is skipped because classifySpans already ran auto-detection on it before
// auto-span detection.
func (b *builder) classifyBranches(agent *Span, isRoot bool) {
	if !b.explicitBranches && !isRoot {
		b.detectAutoBranches(agent)
	}

	for _, item := range agent.Content {
		if sp, ok := item.(*Span); ok {
			b.classifyBranches(sp, false)
		}
	}
	for _, branch := range agent.Branches {
		for _, item := range branch.Content {
			if sp, ok := item.(*Span); ok {
				b.classifyBranches(sp, false)
			}
		}
	}
}
