package videorender

import "sort"

// Text kinds burned into the video.
const (
	KindSubtitle   = "subtitle"
	KindDisclaimer = "disclaimer"
	KindCitation   = "citation"
)

// TextItem is one timed text line of any kind.
type TextItem struct {
	Text      string
	Kind      string
	StartTime int64
	EndTime   int64
}

// Segment is one sub-interval of the time axis with every line active
// throughout it.
type Segment struct {
	StartTime int64
	EndTime   int64
	Lines     []TextItem
}

// PartitionTextItems splits the time axis at every distinct start/end
// boundary across all items and, for each resulting sub-interval, merges the
// items whose range fully covers it. Lines can therefore never visually
// collide; the cost is that a line may be on screen for a sub-interval
// shorter than its original span, and a line whose sub-interval comes up
// empty is dropped.
func PartitionTextItems(items []TextItem) []Segment {
	if len(items) == 0 {
		return nil
	}

	boundarySet := make(map[int64]struct{}, len(items)*2)
	for _, it := range items {
		boundarySet[it.StartTime] = struct{}{}
		boundarySet[it.EndTime] = struct{}{}
	}
	boundaries := make([]int64, 0, len(boundarySet))
	for b := range boundarySet {
		boundaries = append(boundaries, b)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })

	var segments []Segment
	for i := 0; i+1 < len(boundaries); i++ {
		a, b := boundaries[i], boundaries[i+1]
		var lines []TextItem
		for _, it := range items {
			if it.StartTime <= a && it.EndTime >= b {
				lines = append(lines, it)
			}
		}
		if len(lines) == 0 {
			continue
		}
		segments = append(segments, Segment{StartTime: a, EndTime: b, Lines: lines})
	}
	return segments
}
