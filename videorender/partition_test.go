package videorender

import "testing"

func TestPartitionNonOverlappingAndUnion(t *testing.T) {
	items := []TextItem{
		{Text: "sub1", Kind: KindSubtitle, StartTime: 0, EndTime: 3000},
		{Text: "cite", Kind: KindCitation, StartTime: 1000, EndTime: 2000},
		{Text: "sub2", Kind: KindSubtitle, StartTime: 3000, EndTime: 5000},
	}
	segments := PartitionTextItems(items)

	for i := 1; i < len(segments); i++ {
		if segments[i].StartTime < segments[i-1].EndTime {
			t.Errorf("segments %d and %d overlap: %+v %+v", i-1, i, segments[i-1], segments[i])
		}
	}
	if segments[0].StartTime != 0 || segments[len(segments)-1].EndTime != 5000 {
		t.Errorf("union broken: first %+v last %+v", segments[0], segments[len(segments)-1])
	}

	// The citation's sub-interval must carry both the citation and the
	// subtitle covering it.
	var found bool
	for _, seg := range segments {
		if seg.StartTime == 1000 && seg.EndTime == 2000 {
			found = true
			if len(seg.Lines) != 2 {
				t.Errorf("middle segment lines = %+v", seg.Lines)
			}
		}
	}
	if !found {
		t.Error("no segment for citation sub-interval")
	}
}

func TestPartitionDropsEmptySubIntervals(t *testing.T) {
	// A gap between the two items produces a sub-interval no item covers;
	// it is silently dropped, not rendered empty.
	items := []TextItem{
		{Text: "a", Kind: KindSubtitle, StartTime: 0, EndTime: 1000},
		{Text: "b", Kind: KindSubtitle, StartTime: 2000, EndTime: 3000},
	}
	segments := PartitionTextItems(items)

	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}
	for _, seg := range segments {
		if seg.StartTime == 1000 {
			t.Errorf("empty sub-interval survived: %+v", seg)
		}
	}
}

func TestPartitionLinesNeverOutliveSubInterval(t *testing.T) {
	items := []TextItem{
		{Text: "long", Kind: KindSubtitle, StartTime: 0, EndTime: 10000},
		{Text: "short", Kind: KindDisclaimer, StartTime: 4000, EndTime: 6000},
	}
	for _, seg := range PartitionTextItems(items) {
		for _, line := range seg.Lines {
			if line.StartTime > seg.StartTime || line.EndTime < seg.EndTime {
				t.Errorf("line %+v does not fully cover segment %+v", line, seg)
			}
		}
	}
}

func TestPartitionEmptyInput(t *testing.T) {
	if got := PartitionTextItems(nil); got != nil {
		t.Errorf("PartitionTextItems(nil) = %+v", got)
	}
}
