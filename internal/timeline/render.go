package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/spboyer/swimlane/internal/events"
)

// MaxRenderWidth caps auto-detected terminal widths.
const MaxRenderWidth = 200

// overlapTolerance is how close two span time ranges must come to count as
// parallel.
const overlapTolerance = 100 * time.Millisecond

// row is a single line of the swimlane diagram before layout.
type row struct {
	depth    int
	name     string
	segments [][2]time.Time
	tokens   int
	markers  []marker
}

// marker is a glyph overlaid on a bar at a timestamp.
type marker struct {
	at    time.Time
	glyph rune
}

// Render draws the timeline as a fixed-width ASCII swimlane diagram. Each
// line shows a span's label, a proportional time bar, and its token count.
// Pass width <= 0 for the default of 120 characters.
func Render(t *Timeline, width int) string {
	if width <= 0 {
		width = 120
	}

	root := t.Root
	if len(root.Content) == 0 {
		return fmt.Sprintf("%s (empty)", root.Name)
	}

	viewStart := root.StartTime()
	viewEnd := root.EndTime()

	rows := collectRows(root, 0, viewStart, viewEnd)
	if len(rows) == 0 {
		return fmt.Sprintf("%s (empty)", root.Name)
	}

	const tokenWidth = 6
	const separatorChars = 4

	// Minimum label width keeps plain "main" timelines aligned with ones
	// that have subagent rows.
	labelColWidth := 10
	for _, r := range rows {
		if w := r.depth*2 + runewidth.StringWidth(r.name) + 1; w > labelColWidth {
			labelColWidth = w
		}
	}

	barWidth := width - labelColWidth - separatorChars - tokenWidth
	if barWidth < 4 {
		barWidth = 4
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := strings.Repeat("  ", r.depth) + r.name
		bar := renderBar(r.segments, viewStart, viewEnd, barWidth, r.markers)
		tokens := fmt.Sprintf("%6s", formatTokenCount(r.tokens))
		lines = append(lines, padRight(label, labelColWidth)+"│"+bar+"│"+tokens)
	}

	return strings.Join(lines, "\n")
}

// collectRows gathers display rows depth-first: the span's own row, then
// its non-utility child spans grouped by case-insensitive name, then its
// branches. Multi-span groups collapse into a single row whose overlapping
// members cluster into envelope segments with a count glyph.
func collectRows(span *Span, depth int, viewStart, viewEnd time.Time) []row {
	rows := []row{{
		depth:    depth,
		name:     span.Name,
		segments: [][2]time.Time{{span.StartTime(), span.EndTime()}},
		tokens:   span.TotalTokens(),
		markers:  collectMarkers(span),
	}}

	var childSpans []*Span
	for _, item := range span.Content {
		if sp, ok := item.(*Span); ok && !sp.Utility {
			childSpans = append(childSpans, sp)
		}
	}

	// Group by lowercased name, preserving first-occurrence order and
	// first-seen display casing.
	groups := make(map[string][]*Span)
	var groupOrder []string
	for _, child := range childSpans {
		key := strings.ToLower(child.Name)
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], child)
	}

	sort.SliceStable(groupOrder, func(i, j int) bool {
		return earliestStart(groups[groupOrder[i]]).Before(earliestStart(groups[groupOrder[j]]))
	})

	for _, key := range groupOrder {
		group := groups[key]
		displayName := group[0].Name

		if len(group) == 1 {
			s := group[0]
			rows = append(rows, row{
				depth:    depth + 1,
				name:     displayName,
				segments: [][2]time.Time{{s.StartTime(), s.EndTime()}},
				tokens:   s.TotalTokens(),
				markers:  collectMarkers(s),
			})
			// The child's own row was just emitted; inline the rest.
			childRows := collectRows(s, depth+1, viewStart, viewEnd)
			rows = append(rows, childRows[1:]...)
			continue
		}

		// Parallel repeats of the same name: one row, segments per
		// cluster.
		clusters := clusterSpans(group)
		var segments [][2]time.Time
		var allMarkers []marker
		totalTokens := 0
		for _, s := range group {
			totalTokens += s.TotalTokens()
		}

		for _, cluster := range clusters {
			for _, s := range cluster {
				allMarkers = append(allMarkers, collectMarkers(s)...)
			}
			if len(cluster) == 1 {
				s := cluster[0]
				segments = append(segments, [2]time.Time{s.StartTime(), s.EndTime()})
				continue
			}
			envStart := cluster[0].StartTime()
			envEnd := cluster[0].EndTime()
			for _, s := range cluster[1:] {
				if t := s.StartTime(); t.Before(envStart) {
					envStart = t
				}
				if t := s.EndTime(); t.After(envEnd) {
					envEnd = t
				}
			}
			segments = append(segments, [2]time.Time{envStart, envEnd})
			allMarkers = append(allMarkers, marker{at: envStart, glyph: countGlyph(len(cluster))})
		}

		rows = append(rows, row{
			depth:    depth + 1,
			name:     displayName,
			segments: segments,
			tokens:   totalTokens,
			markers:  allMarkers,
		})

		// Only singleton clusters expand further; multi-member clusters
		// show their row alone.
		for _, cluster := range clusters {
			if len(cluster) == 1 {
				childRows := collectRows(cluster[0], depth+1, viewStart, viewEnd)
				rows = append(rows, childRows[1:]...)
			}
		}
	}

	for i, branch := range span.Branches {
		rows = emitBranchRows(branch, i, depth, viewStart, viewEnd, rows)
	}

	return rows
}

// emitBranchRows appends a branch's row and its children's rows.
func emitBranchRows(branch *Branch, index, depth int, viewStart, viewEnd time.Time, rows []row) []row {
	var childSpans []*Span
	for _, item := range branch.Content {
		if sp, ok := item.(*Span); ok {
			childSpans = append(childSpans, sp)
		}
	}

	var label string
	if len(childSpans) == 1 {
		label = "↳ " + childSpans[0].Name
	} else {
		label = fmt.Sprintf("↳ branch %d", index+1)
	}

	var markers []marker
	for _, item := range branch.Content {
		if te, ok := item.(*Event); ok && te.Event.Kind() == events.KindCompaction {
			markers = append(markers, marker{at: te.StartTime(), glyph: '┊'})
		}
	}

	rows = append(rows, row{
		depth:    depth + 1,
		name:     label,
		segments: [][2]time.Time{{branch.StartTime(), branch.EndTime()}},
		tokens:   branch.TotalTokens(),
		markers:  markers,
	})

	for _, child := range childSpans {
		if child.Utility {
			continue
		}
		childRows := collectRows(child, depth+1, viewStart, viewEnd)
		if len(childSpans) == 1 {
			// The single child's own row duplicates the branch row.
			rows = append(rows, childRows[1:]...)
		} else {
			rows = append(rows, childRows...)
		}
	}

	return rows
}

// collectMarkers gathers inline markers from a span's direct event
// content. Compaction events contribute a "┊" glyph at their timestamp.
func collectMarkers(span *Span) []marker {
	var markers []marker
	for _, item := range span.Content {
		te, ok := item.(*Event)
		if !ok {
			continue
		}
		if te.Event.Kind() == events.KindCompaction {
			markers = append(markers, marker{at: te.StartTime(), glyph: '┊'})
		}
	}
	return markers
}

// spansOverlap reports whether two spans' time ranges overlap within
// tolerance.
func spansOverlap(a, b *Span) bool {
	latestStart := a.StartTime()
	if t := b.StartTime(); t.After(latestStart) {
		latestStart = t
	}
	earliestEnd := a.EndTime()
	if t := b.EndTime(); t.Before(earliestEnd) {
		earliestEnd = t
	}
	return latestStart.Before(earliestEnd.Add(overlapTolerance))
}

// clusterSpans groups spans into clusters of overlapping time ranges:
// sort by start, then greedily merge each span into the most recently
// formed cluster when it overlaps any member, else start a new cluster.
// A span overlapping an older (non-last) cluster will not merge into it;
// this under-merge on pathological interleavings is intended behavior.
func clusterSpans(spans []*Span) [][]*Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := append([]*Span{}, spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime().Before(sorted[j].StartTime())
	})

	clusters := [][]*Span{{sorted[0]}}
	for _, span := range sorted[1:] {
		last := len(clusters) - 1
		merged := false
		for _, existing := range clusters[last] {
			if spansOverlap(existing, span) {
				clusters[last] = append(clusters[last], span)
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, []*Span{span})
		}
	}

	return clusters
}

// renderBar renders a proportional bar of exactly width cells with filled
// segments and overlaid markers. Markers only replace filled cells; they
// never create fill on their own.
func renderBar(segments [][2]time.Time, viewStart, viewEnd time.Time, width int, markers []marker) string {
	if width <= 0 {
		return ""
	}

	total := viewEnd.Sub(viewStart).Seconds()
	if total <= 0 {
		// Degenerate case: everything at the same instant.
		return strings.Repeat("█", width)
	}

	bar := make([]rune, width)
	for i := range bar {
		bar[i] = ' '
	}

	for _, seg := range segments {
		startFrac := seg[0].Sub(viewStart).Seconds() / total
		endFrac := seg[1].Sub(viewStart).Seconds() / total
		startPos := clamp(int(startFrac*float64(width)), 0, width-1)
		endPos := min(width, int(endFrac*float64(width)+0.5))
		if endPos <= startPos {
			// Visible segments take at least one cell.
			endPos = startPos + 1
		}
		for i := startPos; i < min(endPos, width); i++ {
			bar[i] = '█'
		}
	}

	for _, m := range markers {
		frac := m.at.Sub(viewStart).Seconds() / total
		pos := clamp(int(frac*float64(width)), 0, width-1)
		if bar[pos] == '█' {
			bar[pos] = m.glyph
		}
	}

	return string(bar)
}

// formatTokenCount formats a token count compactly: "0", "731", "48.5k",
// "1.2M".
func formatTokenCount(tokens int) string {
	if tokens == 0 {
		return "0"
	}
	if tokens < 1000 {
		return strconv.Itoa(tokens)
	}
	if tokens < 1_000_000 {
		value := float64(tokens) / 1000
		if value >= 100 {
			return fmt.Sprintf("%.0fk", value)
		}
		return fmt.Sprintf("%.1fk", value)
	}
	value := float64(tokens) / 1_000_000
	if value >= 100 {
		return fmt.Sprintf("%.0fM", value)
	}
	return fmt.Sprintf("%.1fM", value)
}

var circledDigits = []rune("⓪①②③④⑤⑥⑦⑧⑨")

// countGlyph returns a single-character glyph for a cluster count, e.g.
// ② for 2. Counts above 9 fall back to the last decimal digit.
func countGlyph(n int) rune {
	if n >= 0 && n <= 9 {
		return circledDigits[n]
	}
	s := strconv.Itoa(n)
	return rune(s[len(s)-1])
}

func earliestStart(spans []*Span) time.Time {
	earliest := spans[0].StartTime()
	for _, s := range spans[1:] {
		if t := s.StartTime(); t.Before(earliest) {
			earliest = t
		}
	}
	return earliest
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
