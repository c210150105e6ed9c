package events

// TreeItem is one node in the parsed event tree: either a *TreeSpan or an
// Event leaf. The interface is sealed; no other implementations exist.
type TreeItem interface {
	treeItem()
}

// TreeSpan is a span node in the parsed event tree.
type TreeSpan struct {
	ID       string
	Name     string
	Kind     string
	Begin    *SpanBeginEvent
	Children []TreeItem
}

func (*TreeSpan) treeItem() {}

// Tree parses a flat event log into a hierarchical span/event tree using
// span begin/end markers. Events are attached to their owning span via
// SpanID, which keeps interleaved (parallel) spans intact. Begin and end
// markers themselves do not appear as children; the begin marker is kept
// on the span node. Events referencing an unknown span fall back to the
// top level.
func Tree(evs []Event) []TreeItem {
	var top []TreeItem
	spans := make(map[string]*TreeSpan)

	attach := func(parentID string, item TreeItem) {
		if parent, ok := spans[parentID]; ok {
			parent.Children = append(parent.Children, item)
			return
		}
		top = append(top, item)
	}

	for _, e := range evs {
		switch ev := e.(type) {
		case *SpanBeginEvent:
			span := &TreeSpan{ID: ev.ID, Name: ev.Name, Kind: ev.SpanKind, Begin: ev}
			attach(ev.ParentID, span)
			spans[ev.ID] = span
		case *SpanEndEvent:
			// close marker; nothing to attach
		default:
			attach(e.Base().SpanID, e)
		}
	}

	return top
}

// Sequence flattens a subtree back into its ordered leaf events.
func Sequence(items []TreeItem) []Event {
	var out []Event
	for _, item := range items {
		switch it := item.(type) {
		case *TreeSpan:
			out = append(out, Sequence(it.Children)...)
		case Event:
			out = append(out, it)
		}
	}
	return out
}
