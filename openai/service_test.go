package openai

import (
	"context"
	"strings"
	"testing"

	"github.com/zk94007/osum-vsl/shared/shutterstock"
	"github.com/zk94007/osum-vsl/shared/types"
)

type fakeLLM struct {
	keyword      string
	synonyms     string
	choice       string
	synonymCalls int
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "synonyms"):
		f.synonymCalls++
		return f.synonyms, nil
	case strings.Contains(prompt, "Which sentence"):
		return f.choice, nil
	default:
		return f.keyword, nil
	}
}

type fakeStock struct {
	videos map[string][]shutterstock.Media
}

func (f *fakeStock) SearchVideos(_ context.Context, query string, _ int) ([]shutterstock.Media, error) {
	return f.videos[query], nil
}

func (f *fakeStock) SearchImages(_ context.Context, query string, _ int) ([]shutterstock.Media, error) {
	return f.videos[query], nil
}

type fakeCatalog struct {
	items map[string][]CatalogItem
}

func (f *fakeCatalog) Search(_ context.Context, keyword string) ([]CatalogItem, error) {
	return f.items[keyword], nil
}

func media(n int) []shutterstock.Media {
	out := make([]shutterstock.Media, n)
	for i := range out {
		out[i] = shutterstock.Media{ID: "m", Description: "clip", URL: "http://example.com/clip.mp4"}
	}
	return out
}

func newTestEngine(llm *fakeLLM, stock *fakeStock, catalog *fakeCatalog) *Engine {
	e := NewEngine(llm, stock, catalog)
	e.randInt = func(int) int { return 0 }
	return e
}

func TestSearchStockPrimaryKeywordSufficient(t *testing.T) {
	llm := &fakeLLM{synonyms: "unused"}
	stock := &fakeStock{videos: map[string][]shutterstock.Media{"energy": media(3)}}
	e := newTestEngine(llm, stock, nil)

	got, err := e.SearchStock(context.Background(), "energy", types.VideoDataType)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates, want 3", len(got))
	}
	if llm.synonymCalls != 0 {
		t.Errorf("synonyms requested despite sufficient primary results")
	}
}

func TestSearchStockSynonymFallback(t *testing.T) {
	llm := &fakeLLM{synonyms: "vigor, training"}
	stock := &fakeStock{videos: map[string][]shutterstock.Media{
		"energy":   media(1),
		"training": media(4),
	}}
	e := newTestEngine(llm, stock, nil)

	got, err := e.SearchStock(context.Background(), "energy", types.VideoDataType)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("got %d candidates, want 4 from synonym search", len(got))
	}
	if llm.synonymCalls != 1 {
		t.Errorf("synonym calls = %d, want 1", llm.synonymCalls)
	}
}

func TestSearchStockKeepsBestWhenAllBelowThreshold(t *testing.T) {
	llm := &fakeLLM{synonyms: "vigor"}
	stock := &fakeStock{videos: map[string][]shutterstock.Media{
		"energy":       media(1),
		DefaultKeyword: media(2),
	}}
	e := newTestEngine(llm, stock, nil)

	got, err := e.SearchStock(context.Background(), "energy", types.VideoDataType)
	if err != nil {
		t.Fatal(err)
	}
	// Never fewer than min(threshold, available): two candidates exist.
	if len(got) != 2 {
		t.Errorf("got %d candidates, want 2 (best available)", len(got))
	}
}

func TestSearchCatalogFallsBackToDefault(t *testing.T) {
	llm := &fakeLLM{synonyms: "vigor"}
	catalog := &fakeCatalog{items: map[string][]CatalogItem{
		DefaultKeyword: {{Title: "Healthy diet", URL: "u1"}},
	}}
	e := newTestEngine(llm, nil, catalog)

	got, err := e.SearchCatalog(context.Background(), "energy")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "u1" {
		t.Errorf("got %+v, want the default-keyword item", got)
	}
}

func TestChooseParsesValidIndex(t *testing.T) {
	llm := &fakeLLM{choice: " 2"}
	e := newTestEngine(llm, nil, nil)

	idx, err := e.Choose(context.Background(), &types.TextContext{Current: "c"},
		[]Candidate{{Description: "a"}, {Description: "b"}, {Description: "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
}

func TestChooseOutOfRangeFallsBackToRandom(t *testing.T) {
	llm := &fakeLLM{choice: "Sentence 9"}
	e := newTestEngine(llm, nil, nil)
	e.randInt = func(n int) int { return n - 1 }

	idx, err := e.Choose(context.Background(), &types.TextContext{Current: "c"},
		[]Candidate{{Description: "a"}, {Description: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("idx = %d, want random fallback 1", idx)
	}
}

func TestChooseSingleCandidateSkipsPrompt(t *testing.T) {
	e := newTestEngine(&fakeLLM{}, nil, nil)
	idx, err := e.Choose(context.Background(), &types.TextContext{Current: "c"},
		[]Candidate{{Description: "only"}})
	if err != nil || idx != 0 {
		t.Errorf("idx, err = %d, %v; want 0, nil", idx, err)
	}
}

func TestKeywordFallsBackToContentWord(t *testing.T) {
	llm := &fakeLLM{keyword: "\n"}
	e := newTestEngine(llm, nil, nil)

	kw, err := e.Keyword(context.Background(), "Burn fat with this amazing program", map[string]bool{"burn": true})
	if err != nil {
		t.Fatal(err)
	}
	if kw == "" || kw == "burn" {
		t.Errorf("keyword = %q, want a fresh content word", kw)
	}
}

func TestSplitVideosImages(t *testing.T) {
	identity := func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	kinds := SplitVideosImages(4, 50, identity)
	want := []string{types.VideoDataType, types.VideoDataType, types.ImageDataType, types.ImageDataType}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}

	shuffled := func(int) []int { return []int{3, 1, 0, 2} }
	kinds = SplitVideosImages(4, 50, shuffled)
	if kinds[3] != types.VideoDataType || kinds[1] != types.VideoDataType {
		t.Errorf("video positions wrong: %v", kinds)
	}
	if kinds[0] != types.ImageDataType || kinds[2] != types.ImageDataType {
		t.Errorf("image positions wrong: %v", kinds)
	}

	all := SplitVideosImages(3, 100, identity)
	for i, k := range all {
		if k != types.VideoDataType {
			t.Errorf("kinds[%d] = %q with 100%% videos", i, k)
		}
	}
}
