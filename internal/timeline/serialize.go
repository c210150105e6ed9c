package timeline

import (
	"fmt"

	"github.com/spboyer/swimlane/internal/events"
)

// Dump serializes a timeline to a tree of plain mappings suitable for JSON
// or YAML encoding. Events are represented by their UUIDs ("" when an
// event has none).
func Dump(t *Timeline) map[string]any {
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"root":        dumpSpan(t.Root),
	}
}

func dumpSpan(s *Span) map[string]any {
	content := make([]any, 0, len(s.Content))
	for _, item := range s.Content {
		content = append(content, dumpItem(item))
	}
	branches := make([]any, 0, len(s.Branches))
	for _, br := range s.Branches {
		branches = append(branches, dumpBranch(br))
	}
	return map[string]any{
		"type":        "span",
		"id":          s.ID,
		"name":        s.Name,
		"span_type":   nilIfEmpty(s.Kind),
		"content":     content,
		"branches":    branches,
		"description": nilIfEmpty(s.Description),
		"utility":     s.Utility,
		"outline":     dumpOutline(s.Outline),
	}
}

func dumpItem(item Item) map[string]any {
	switch it := item.(type) {
	case *Event:
		return map[string]any{"type": "event", "event": it.Event.Base().UUID}
	case *Span:
		return dumpSpan(it)
	}
	return nil // unreachable: Item is sealed
}

func dumpBranch(b *Branch) map[string]any {
	content := make([]any, 0, len(b.Content))
	for _, item := range b.Content {
		content = append(content, dumpItem(item))
	}
	return map[string]any{
		"type":      "branch",
		"forked_at": b.ForkedAt,
		"content":   content,
	}
}

func dumpOutline(o *Outline) any {
	if o == nil {
		return nil
	}
	nodes := make([]any, 0, len(o.Nodes))
	for _, n := range o.Nodes {
		nodes = append(nodes, dumpOutlineNode(n))
	}
	return map[string]any{"nodes": nodes}
}

func dumpOutlineNode(n *OutlineNode) map[string]any {
	children := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, dumpOutlineNode(c))
	}
	return map[string]any{"event": n.Event, "children": children}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Load reconstructs a timeline from its serialized form, resolving event
// UUIDs via an index built from the supplied event list. A UUID that
// resolves to no event fails with a dangling-reference error.
func Load(data map[string]any, evs []events.Event) (*Timeline, error) {
	index := make(map[string]events.Event, len(evs))
	for _, e := range evs {
		if u := e.Base().UUID; u != "" {
			index[u] = e
		}
	}

	rootData, ok := data["root"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("timeline: missing root span")
	}
	root, err := loadSpan(rootData, index)
	if err != nil {
		return nil, err
	}

	return &Timeline{
		Name:        asString(data["name"]),
		Description: asString(data["description"]),
		Root:        root,
	}, nil
}

func loadSpan(data map[string]any, index map[string]events.Event) (*Span, error) {
	span := &Span{
		ID:          asString(data["id"]),
		Name:        asString(data["name"]),
		Kind:        asString(data["span_type"]),
		Description: asString(data["description"]),
		Utility:     data["utility"] == true,
	}

	content, err := loadContent(data["content"], index)
	if err != nil {
		return nil, fmt.Errorf("span %q: %w", span.ID, err)
	}
	span.Content = content

	if raw, ok := data["branches"].([]any); ok {
		for _, entry := range raw {
			branchData, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("span %q: malformed branch", span.ID)
			}
			branch, err := loadBranch(branchData, index)
			if err != nil {
				return nil, fmt.Errorf("span %q: %w", span.ID, err)
			}
			span.Branches = append(span.Branches, branch)
		}
	}

	if outlineData, ok := data["outline"].(map[string]any); ok {
		span.Outline = loadOutline(outlineData)
	}

	return span, nil
}

func loadBranch(data map[string]any, index map[string]events.Event) (*Branch, error) {
	content, err := loadContent(data["content"], index)
	if err != nil {
		return nil, err
	}
	return &Branch{
		ForkedAt: asString(data["forked_at"]),
		Content:  content,
	}, nil
}

func loadContent(raw any, index map[string]events.Event) ([]Item, error) {
	entries, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	var content []Item
	for _, entry := range entries {
		itemData, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed content item")
		}
		item, err := loadItem(itemData, index)
		if err != nil {
			return nil, err
		}
		content = append(content, item)
	}
	return content, nil
}

func loadItem(data map[string]any, index map[string]events.Event) (Item, error) {
	// Absent type defaults to "event", matching the dump discriminator.
	kind := "event"
	if t, ok := data["type"].(string); ok {
		kind = t
	}
	switch kind {
	case "span":
		return loadSpan(data, index)
	case "event":
		uuid := asString(data["event"])
		e, ok := index[uuid]
		if !ok {
			return nil, fmt.Errorf("dangling event reference %q", uuid)
		}
		return &Event{Event: e}, nil
	default:
		return nil, fmt.Errorf("unknown content item type %q", kind)
	}
}

func loadOutline(data map[string]any) *Outline {
	outline := &Outline{}
	if nodes, ok := data["nodes"].([]any); ok {
		for _, raw := range nodes {
			if nodeData, ok := raw.(map[string]any); ok {
				outline.Nodes = append(outline.Nodes, loadOutlineNode(nodeData))
			}
		}
	}
	return outline
}

func loadOutlineNode(data map[string]any) *OutlineNode {
	node := &OutlineNode{Event: asString(data["event"])}
	if children, ok := data["children"].([]any); ok {
		for _, raw := range children {
			if childData, ok := raw.(map[string]any); ok {
				node.Children = append(node.Children, loadOutlineNode(childData))
			}
		}
	}
	return node
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
