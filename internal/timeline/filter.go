package timeline

// Filter returns a new timeline keeping only spans the predicate accepts.
// Non-matching spans are pruned with their entire subtrees; event leaves
// are always retained (they belong to the parent span). Branches are not
// filtered: they pass through unchanged on surviving spans. The input
// timeline is never mutated.
func Filter(t *Timeline, predicate func(*Span) bool) *Timeline {
	return &Timeline{
		Name:        t.Name,
		Description: t.Description,
		Root:        filterSpan(t.Root, predicate),
	}
}

func filterSpan(span *Span, predicate func(*Span) bool) *Span {
	filtered := make([]Item, 0, len(span.Content))
	for _, item := range span.Content {
		if sp, ok := item.(*Span); ok {
			if predicate(sp) {
				filtered = append(filtered, filterSpan(sp, predicate))
			}
			continue
		}
		filtered = append(filtered, item)
	}

	out := *span
	out.Content = filtered
	return &out
}
