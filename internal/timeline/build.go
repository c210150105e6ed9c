package timeline

import (
	"github.com/spboyer/swimlane/internal/events"
)

// builder carries per-build state: the global explicit-branch flag and the
// fingerprint cache. A builder is used for exactly one Build call.
type builder struct {
	explicitBranches bool
	fp               *fingerprinter
}

// Build constructs a Timeline from a flat event log.
//
// The event tree parser supplies span structure, then:
//  1. Top-level spans named "init", "solvers", "scorers" partition the run
//     into phases when present.
//  2. Otherwise the entire stream is treated as one synthetic agent.
//
// Agent detection within the solvers section (or the whole stream):
// explicit agent spans keep kind "agent"; tool spans containing model
// events are reclassified as tool-spawned pseudo-agents (kind "").
func Build(evs []events.Event) *Timeline {
	if len(evs) == 0 {
		return &Timeline{
			Name: "Default",
			Root: &Span{ID: "root", Name: "root"},
		}
	}

	b := &builder{fp: newFingerprinter()}
	for _, e := range evs {
		if sb, ok := e.(*events.SpanBeginEvent); ok && sb.SpanKind == "branch" {
			b.explicitBranches = true
			break
		}
	}

	tree := events.Tree(evs)

	topSpans := make(map[string]*events.TreeSpan)
	for _, item := range tree {
		if sp, ok := item.(*events.TreeSpan); ok {
			switch sp.Name {
			case "init", "solvers", "scorers":
				topSpans[sp.Name] = sp
			}
		}
	}

	initSpan := topSpans["init"]
	solversSpan := topSpans["solvers"]
	scorersSpan := topSpans["scorers"]

	var root *Span
	if initSpan != nil || solversSpan != nil || scorersSpan != nil {
		initNode := absorbPhaseSpan(initSpan, "Init", "init")

		var agentNode *Span
		if solversSpan != nil {
			agentNode = b.buildAgentFromSolvers(solversSpan)
		}

		scoringNode := absorbPhaseSpan(scorersSpan, "Scoring", "scorers")

		if agentNode != nil {
			b.classifySpans(agentNode)

			if initNode != nil {
				agentNode.Content = append([]Item{initNode}, agentNode.Content...)
			}
			if scoringNode != nil {
				agentNode.Content = append(agentNode.Content, scoringNode)
			}
			root = agentNode
		} else {
			// No solvers span: root holds only the phases.
			var content []Item
			if initNode != nil {
				content = append(content, initNode)
			}
			if scoringNode != nil {
				content = append(content, scoringNode)
			}
			root = &Span{ID: "root", Name: "root", Content: content}
		}
	} else {
		root = b.buildAgentFromTree(tree)
		b.classifySpans(root)
	}

	return &Timeline{Name: "Default", Root: root}
}

// classifySpans runs the classification passes in their fixed order. Later
// passes assume the elisions and re-groupings of earlier ones.
func (b *builder) classifySpans(root *Span) {
	if !b.explicitBranches {
		b.detectAutoBranches(root)
	}
	b.classifyAutoSpans(root)
	classifyUtilityAgents(root, nil)
	b.classifyBranches(root, true)
}

// absorbPhaseSpan flattens a phase span's descendants into a single span of
// leaf events. Returns nil when the phase span is absent or empty.
func absorbPhaseSpan(span *events.TreeSpan, name, kind string) *Span {
	if span == nil {
		return nil
	}
	flat := events.Sequence(span.Children)
	if len(flat) == 0 {
		return nil
	}
	content := make([]Item, 0, len(flat))
	for _, e := range flat {
		content = append(content, &Event{Event: e})
	}
	return &Span{ID: span.ID, Name: name, Kind: kind, Content: content}
}

// buildAgentFromSolvers builds the agent hierarchy from the solvers span.
// Explicit agent spans within it become the agent tree; without any, the
// solvers span itself serves as the agent container.
func (b *builder) buildAgentFromSolvers(solvers *events.TreeSpan) *Span {
	if len(solvers.Children) == 0 {
		return nil
	}

	var agentSpans []*events.TreeSpan
	var otherItems []events.TreeItem
	for _, child := range solvers.Children {
		if sp, ok := child.(*events.TreeSpan); ok && sp.Kind == "agent" {
			agentSpans = append(agentSpans, sp)
		} else {
			otherItems = append(otherItems, child)
		}
	}

	switch {
	case len(agentSpans) == 1:
		return b.buildAgentSpan(agentSpans[0], otherItems)
	case len(agentSpans) > 1:
		// Multiple agents: synthesize a root containing all of them,
		// with orphan siblings pushed to the front.
		children := make([]Item, 0, len(agentSpans))
		for _, sp := range agentSpans {
			children = append(children, b.buildAgentSpan(sp, nil))
		}
		for _, item := range otherItems {
			children = append([]Item{b.treeItemToNode(item)}, children...)
		}
		return &Span{ID: "root", Name: "root", Kind: "agent", Content: children}
	default:
		content, branches := b.processChildren(solvers.Children)
		return &Span{
			ID:       solvers.ID,
			Name:     solvers.Name,
			Kind:     "agent",
			Content:  content,
			Branches: branches,
		}
	}
}

// buildAgentSpan converts an agent-kind tree span, with any orphan sibling
// items inserted as leading content.
func (b *builder) buildAgentSpan(span *events.TreeSpan, extra []events.TreeItem) *Span {
	var content []Item
	for _, item := range extra {
		content = append(content, b.treeItemToNode(item))
	}

	childContent, branches := b.processChildren(span.Children)
	content = append(content, childContent...)

	var description string
	if span.Begin != nil {
		if d, ok := span.Begin.Metadata["description"].(string); ok {
			description = d
		}
	}

	return &Span{
		ID:          span.ID,
		Name:        span.Name,
		Kind:        "agent",
		Content:     content,
		Branches:    branches,
		Description: description,
	}
}

// treeItemToNode converts one tree item into a timeline node.
func (b *builder) treeItemToNode(item events.TreeItem) Item {
	switch it := item.(type) {
	case *events.TreeSpan:
		if it.Kind == "agent" {
			return b.buildAgentSpan(it, nil)
		}
		return b.buildGenericSpan(it)
	case events.Event:
		return b.eventToNode(it)
	}
	return nil // unreachable: TreeItem is sealed
}

// eventToNode wraps an event, synthesizing a child span for tool calls
// that themselves ran an agent loop (spawned-agent name plus nested
// events). Nested events are processed recursively so agents spawned
// inside the nested loop are detected too.
func (b *builder) eventToNode(e events.Event) Item {
	if tool, ok := e.(*events.ToolEvent); ok && tool.Agent != "" && len(tool.Events) > 0 {
		nested := make([]Item, 0, len(tool.Events))
		for _, ne := range tool.Events {
			nested = append(nested, b.eventToNode(ne))
		}
		return &Span{
			ID:      "tool-agent-" + tool.ID,
			Name:    tool.Agent,
			Content: nested,
		}
	}
	return &Event{Event: e}
}

// buildGenericSpan converts a non-agent tree span. A tool span containing
// model events is reclassified as a tool-spawned pseudo-agent (kind "")
// rather than a plain tool call.
func (b *builder) buildGenericSpan(span *events.TreeSpan) *Span {
	content, branches := b.processChildren(span.Children)

	kind := span.Kind
	if span.Kind == "tool" && containsModelEvents(span) {
		kind = ""
	}

	return &Span{
		ID:       span.ID,
		Name:     span.Name,
		Kind:     kind,
		Content:  content,
		Branches: branches,
	}
}

// containsModelEvents reports whether any descendant is a model event.
func containsModelEvents(span *events.TreeSpan) bool {
	for _, child := range span.Children {
		switch it := child.(type) {
		case *events.TreeSpan:
			if containsModelEvents(it) {
				return true
			}
		case *events.ModelEvent:
			return true
		}
	}
	return false
}

// buildAgentFromTree wraps the whole tree in a synthetic "main" agent when
// no phase spans exist.
func (b *builder) buildAgentFromTree(tree []events.TreeItem) *Span {
	content, branches := b.processChildren(tree)
	return &Span{
		ID:       "main",
		Name:     "main",
		Kind:     "agent",
		Content:  content,
		Branches: branches,
	}
}
