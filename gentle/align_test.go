package gentle

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zk94007/osum-vsl/shared/types"
)

func matched(word string, start, end float64) AlignedWord {
	return AlignedWord{Word: word, Case: CaseSuccess, Start: start, End: end}
}

func unmatched(word string) AlignedWord {
	return AlignedWord{Word: word, Case: "not-found-in-audio"}
}

func TestSeparateWords(t *testing.T) {
	got := SeparateWords("A well-known  trick\nworks")
	want := []string{"A", "well", "known", "trick", "works"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SeparateWords = %v, want %v", got, want)
	}
}

func TestSeparateWordsQuotedPhrase(t *testing.T) {
	got := SeparateWords(`He said "well done" today`)
	want := []string{"He", "said", "well done", "today"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeparateWords = %v, want %v", got, want)
	}

	// An unterminated quote is no phrase marker.
	got = SeparateWords(`say "oops`)
	want = []string{"say", `"oops`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeparateWords = %v, want %v", got, want)
	}
}

func TestNormalizeSpokenWords(t *testing.T) {
	tests := []struct {
		name  string
		in    []string
		want  []string
		origs []int
	}{
		{"currency plural", []string{"$400", "items"}, []string{"400", "dollars", "items"}, []int{0, 0, 1}},
		{"currency singular", []string{"$1"}, []string{"1", "dollar"}, []int{0}},
		{"ampersand", []string{"cats", "&", "dogs"}, []string{"cats", "and", "dogs"}, []int{0, 1, 2}},
		{"currency with punctuation", []string{"$400."}, []string{"400", "dollars."}, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSpokenWords(tt.in)
			var texts []string
			for _, s := range got {
				texts = append(texts, s.Text)
			}
			if !reflect.DeepEqual(texts, tt.want) {
				t.Errorf("tokens = %v, want %v", texts, tt.want)
			}
			if tt.name == "currency plural" {
				if got[0].Orig != 0 || got[1].Orig != 0 || got[2].Orig != 1 {
					t.Errorf("source indices wrong: %+v", got)
				}
			}
		})
	}
}

func TestRepairTimingsMatchedWordsKeepAlignedTimes(t *testing.T) {
	words := RepairTimings([]AlignedWord{matched("a", 0, 0.5), matched("b", 0.6, 1.2)}, 2)
	if words[0].StartTimeMs != 0 || words[0].EndTimeMs != 500 {
		t.Errorf("word a = %+v", words[0])
	}
	if words[1].StartTimeMs != 600 || words[1].EndTimeMs != 1200 {
		t.Errorf("word b = %+v", words[1])
	}
	for _, w := range words {
		if w.Fixed {
			t.Errorf("matched word flagged fixed: %+v", w)
		}
	}
}

func TestRepairTimingsUnmatchedRunIsMonotoneAndBounded(t *testing.T) {
	words := RepairTimings([]AlignedWord{
		matched("a", 0, 0.5),
		unmatched("b"),
		unmatched("c"),
		matched("d", 2.0, 2.5),
	}, 3)

	if !words[1].Fixed || !words[2].Fixed {
		t.Fatal("unmatched words must be flagged fixed")
	}
	if words[1].StartTimeMs != 501 || words[2].StartTimeMs != 502 {
		t.Errorf("run timings = %d, %d; want 501, 502", words[1].StartTimeMs, words[2].StartTimeMs)
	}
	for i := 1; i <= 2; i++ {
		if words[i].StartTimeMs < words[0].EndTimeMs || words[i].EndTimeMs > words[3].StartTimeMs {
			t.Errorf("word %d (%+v) outside matched neighbors", i, words[i])
		}
	}
}

func TestRepairTimingsEdgeAnchors(t *testing.T) {
	lead := RepairTimings([]AlignedWord{unmatched("x"), matched("y", 1.0, 1.5)}, 2)
	if lead[0].StartTimeMs != 1 {
		t.Errorf("leading run anchor = %d, want 1", lead[0].StartTimeMs)
	}

	trail := RepairTimings([]AlignedWord{matched("y", 1.0, 2.9), unmatched("x"), unmatched("z")}, 3)
	for i := 1; i <= 2; i++ {
		if trail[i].EndTimeMs > 3000 {
			t.Errorf("trailing word %d = %+v exceeds duration", i, trail[i])
		}
	}
	if trail[1].StartTimeMs != 2901 || trail[2].StartTimeMs != 2902 {
		t.Errorf("trailing run = %d, %d", trail[1].StartTimeMs, trail[2].StartTimeMs)
	}
}

func TestRepairTimingsClampsToNextMatchedStart(t *testing.T) {
	words := RepairTimings([]AlignedWord{
		matched("a", 0, 0.5),
		unmatched("b"),
		unmatched("c"),
		unmatched("d"),
		matched("e", 0.502, 0.9),
	}, 1)
	if words[1].StartTimeMs != 501 || words[2].StartTimeMs != 502 || words[3].StartTimeMs != 502 {
		t.Errorf("run = %d, %d, %d; want 501, 502, 502",
			words[1].StartTimeMs, words[2].StartTimeMs, words[3].StartTimeMs)
	}
}

func testWords(starts []int64, lastEnd int64, texts []string) []types.Word {
	words := make([]types.Word, len(texts))
	for i := range texts {
		end := lastEnd
		if i+1 < len(starts) {
			end = starts[i+1] - 100
		}
		words[i] = types.Word{Word: texts[i], StartTimeMs: starts[i], EndTimeMs: end}
	}
	return words
}

func TestBuildRowsCapBreak(t *testing.T) {
	words := testWords([]int64{0, 1000, 2000, 3000}, 3500, []string{"The", "quick", "brown", "fox"})
	rows, _ := BuildRows(words, 10, 3.5)

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	if rows[0].Text != "The quick" || rows[1].Text != "brown fox" {
		t.Errorf("rows = %q, %q", rows[0].Text, rows[1].Text)
	}
	if rows[0].StartTime != 0 || rows[0].EndTime != 2000 {
		t.Errorf("row 0 span = [%d,%d], want [0,2000]", rows[0].StartTime, rows[0].EndTime)
	}
	if rows[1].StartTime != 2000 || rows[1].EndTime != 3500 {
		t.Errorf("row 1 span = [%d,%d], want [2000,3500]", rows[1].StartTime, rows[1].EndTime)
	}
}

func TestBuildRowsGaplessAndCapped(t *testing.T) {
	words := testWords(
		[]int64{0, 500, 1200, 2000, 2600, 3300, 4100}, 4600,
		[]string{"one", "two", "three", "four", "five", "six", "seven"})
	rows, _ := BuildRows(words, 12, 5)

	for i, r := range rows {
		if i < len(rows)-1 && len(r.Text) > 12 {
			t.Errorf("row %d exceeds cap: %q", i, r.Text)
		}
		if r.EndTime < r.StartTime {
			t.Errorf("row %d inverted: %+v", i, r)
		}
		if i > 0 && r.StartTime != rows[i-1].EndTime {
			t.Errorf("gap between rows %d and %d: %d != %d", i-1, i, rows[i-1].EndTime, r.StartTime)
		}
	}
	if rows[len(rows)-1].EndTime > 5000 {
		t.Errorf("last row end %d exceeds duration", rows[len(rows)-1].EndTime)
	}
}

func TestBuildRowsMinimumDuration(t *testing.T) {
	words := testWords([]int64{0, 200, 400, 600}, 5000, []string{"aa", "bb", "zzzz", "qq"})
	rows, _ := BuildRows(words, 5, 5)

	// The row would close at 400ms; the 500ms extension pushes it to 900ms,
	// not to a flat 500ms floor.
	if rows[0].EndTime != 900 {
		t.Errorf("row 0 end = %d, want 900", rows[0].EndTime)
	}
	if rows[1].StartTime != rows[0].EndTime {
		t.Errorf("extension broke gaplessness: %+v %+v", rows[0], rows[1])
	}
}

func TestBuildRowsSentences(t *testing.T) {
	words := testWords([]int64{0, 600, 1300, 2100}, 2600, []string{"Hello", "world.", "Good", "bye!"})
	_, sentences := BuildRows(words, 42, 3)

	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2: %+v", len(sentences), sentences)
	}
	if sentences[0].Text != "Hello world." || sentences[1].Text != "Good bye!" {
		t.Errorf("sentences = %q, %q", sentences[0].Text, sentences[1].Text)
	}
	if sentences[1].StartTime != sentences[0].EndTime {
		t.Errorf("sentences not gapless: %+v", sentences)
	}
}

func TestWithTextContext(t *testing.T) {
	rows := WithTextContext([]types.Row{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if rows[0].TextContext.Before != "" || rows[0].TextContext.After != "b" {
		t.Errorf("row 0 context = %+v", rows[0].TextContext)
	}
	if rows[1].TextContext.Before != "a" || rows[1].TextContext.Current != "b" || rows[1].TextContext.After != "c" {
		t.Errorf("row 1 context = %+v", rows[1].TextContext)
	}
	if rows[2].TextContext.After != "" {
		t.Errorf("row 2 context = %+v", rows[2].TextContext)
	}
}

func spanWords(plain string) []types.Word {
	tokens := SeparateWords(plain)
	words := make([]types.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = types.Word{Word: tok, StartTimeMs: int64(i * 1000), EndTimeMs: int64(i*1000 + 900)}
	}
	return words
}

func TestResolveSpansMultipleOccurrences(t *testing.T) {
	plain := "Lose weight fast. Lose weight now."
	words := spanWords(plain)

	spans, err := ResolveSpans(plain, words, "lose weight")
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].StartTimeMs != 0 || spans[0].EndTimeMs != 1900 {
		t.Errorf("first span = %+v", spans[0])
	}
	if spans[1].StartTimeMs != 3000 || spans[1].EndTimeMs != 4900 {
		t.Errorf("second span = %+v", spans[1])
	}
}

func TestResolveSpansIdempotent(t *testing.T) {
	plain := "Our product helps you lose weight."
	words := spanWords(plain)

	first, err := ResolveSpans(plain, words, "lose weight.")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ResolveSpans(plain, words, "lose weight.")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolveSpansMisalignedBoundary(t *testing.T) {
	plain := "Lose weight fast."
	words := spanWords(plain)

	_, err := ResolveSpans(plain, words, "ose weight")
	var matchErr *MatchError
	if !errors.As(err, &matchErr) {
		t.Fatalf("want MatchError, got %v", err)
	}

	_, err = ResolveSpans(plain, words, "never said this")
	if !errors.As(err, &matchErr) {
		t.Fatalf("want MatchError for missing span, got %v", err)
	}
}

func TestMergeExpandedWords(t *testing.T) {
	tokens := []string{"$400", "items"}
	spoken := NormalizeSpokenWords(tokens)
	spokenWords := []types.Word{
		{Word: "400", StartTimeMs: 100, EndTimeMs: 500},
		{Word: "dollars", StartTimeMs: 500, EndTimeMs: 1200, Fixed: true},
		{Word: "items", StartTimeMs: 1300, EndTimeMs: 1800},
	}

	merged := MergeExpandedWords(spokenWords, spoken, tokens)
	if len(merged) != 2 {
		t.Fatalf("got %d merged words, want 2", len(merged))
	}
	if merged[0].Word != "$400" || merged[0].StartTimeMs != 100 || merged[0].EndTimeMs != 1200 || !merged[0].Fixed {
		t.Errorf("merged[0] = %+v", merged[0])
	}
	if merged[1].Word != "items" || merged[1].StartTimeMs != 1300 {
		t.Errorf("merged[1] = %+v", merged[1])
	}
}
