package videorender

import (
	"reflect"
	"strings"
	"testing"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want []string
	}{
		{"one two three", 7, []string{"one two", "three"}},
		{"short", 20, []string{"short"}},
		{"supercalifragilistic", 5, []string{"supercalifragilistic"}},
	}
	for _, tt := range tests {
		if got := WrapText(tt.in, tt.max); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("WrapText(%q, %d) = %v, want %v", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestEscapeDrawText(t *testing.T) {
	got := EscapeDrawText(`it's 50%: "done"`)
	if strings.ContainsAny(got, `'"`) {
		t.Errorf("straight quotes survived: %q", got)
	}
	if !strings.Contains(got, `\%`) || !strings.Contains(got, `\:`) {
		t.Errorf("percent/colon not escaped: %q", got)
	}
}

func TestBuildTextFilterScriptLiftsSubtitlesAboveCitations(t *testing.T) {
	p := DefaultProfiles()[0]
	segments := PartitionTextItems([]TextItem{
		{Text: "caption", Kind: KindSubtitle, StartTime: 0, EndTime: 2000},
		{Text: "source note", Kind: KindCitation, StartTime: 0, EndTime: 2000},
	})
	script := BuildTextFilterScript(segments, &p)

	if !strings.Contains(script, "drawtext=") {
		t.Fatalf("no drawtext in script: %q", script)
	}
	if !strings.Contains(script, "between(t,0.000,2.000)") {
		t.Errorf("enable window missing: %q", script)
	}
	// Both lines must appear, and the script for the caption must not use
	// the plain bottom margin y (it is lifted above the citation line).
	if !strings.Contains(script, "caption") || !strings.Contains(script, "source note") {
		t.Errorf("lines missing from script: %q", script)
	}
}
