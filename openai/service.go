package openai

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/zk94007/osum-vsl/shared/shutterstock"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/util"
)

const (
	// DefaultMinResults is the search result count below which fallback
	// keywords are tried.
	DefaultMinResults = 3
	// DefaultMaxCandidates caps how many hits are offered to the chooser.
	DefaultMaxCandidates = 5
)

// Candidate is one piece of content the chooser can pick for a row.
type Candidate struct {
	Description string
	URL         string
}

// StockSearcher is the stock media search surface, narrowed for tests.
type StockSearcher interface {
	SearchVideos(ctx context.Context, query string, perPage int) ([]shutterstock.Media, error)
	SearchImages(ctx context.Context, query string, perPage int) ([]shutterstock.Media, error)
}

// Engine runs content selection for one row at a time.
type Engine struct {
	llm           LLM
	stock         StockSearcher
	catalog       Catalog
	minResults    int
	maxCandidates int
	randInt       func(n int) int
}

func NewEngine(llm LLM, stock StockSearcher, catalog Catalog) *Engine {
	return &Engine{
		llm:           llm,
		stock:         stock,
		catalog:       catalog,
		minResults:    DefaultMinResults,
		maxCandidates: DefaultMaxCandidates,
		randInt:       rand.Intn,
	}
}

// Keyword extracts a search keyword for the row text. When the model yields
// nothing usable or a keyword already rejected for this row, it falls back to
// a random content word of the row that has not been rejected yet.
func (e *Engine) Keyword(ctx context.Context, text string, rejected map[string]bool) (string, error) {
	completion, err := e.llm.Complete(ctx, KeywordPrompt(text))
	if err != nil {
		return "", err
	}
	kw := ParseKeyword(completion)
	if kw != "" && !rejected[kw] {
		return kw, nil
	}

	pool := util.ContentWords(text)
	var fresh []string
	for _, w := range pool {
		if !rejected[w] {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		return DefaultKeyword, nil
	}
	return fresh[e.randInt(len(fresh))], nil
}

// SearchStock searches stock media by keyword, trying model synonyms and
// finally the default keyword when results stay under the minimum threshold.
// It returns the best (largest) candidate set seen, so callers never get
// fewer than min(threshold, available) candidates when any exist.
func (e *Engine) SearchStock(ctx context.Context, keyword, kind string) ([]Candidate, error) {
	best, err := e.searchStockOnce(ctx, keyword, kind)
	if err != nil {
		return nil, err
	}
	if len(best) >= e.minResults {
		return best, nil
	}

	completion, err := e.llm.Complete(ctx, SynonymsPrompt(keyword))
	if err != nil {
		return nil, err
	}
	for _, syn := range ParseSynonyms(completion) {
		c, err := e.searchStockOnce(ctx, syn, kind)
		if err != nil {
			return nil, err
		}
		if len(c) >= e.minResults {
			return c, nil
		}
		if len(c) > len(best) {
			best = c
		}
	}

	c, err := e.searchStockOnce(ctx, DefaultKeyword, kind)
	if err != nil {
		return nil, err
	}
	if len(c) > len(best) {
		best = c
	}
	return best, nil
}

func (e *Engine) searchStockOnce(ctx context.Context, keyword, kind string) ([]Candidate, error) {
	var media []shutterstock.Media
	var err error
	if kind == types.VideoDataType {
		media, err = e.stock.SearchVideos(ctx, keyword, e.maxCandidates)
	} else {
		media, err = e.stock.SearchImages(ctx, keyword, e.maxCandidates)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(media))
	for _, m := range media {
		out = append(out, Candidate{Description: m.Description, URL: m.URL})
	}
	return out, nil
}

// SearchCatalog searches the curated catalog with the same fallback chain as
// SearchStock. Curated items are always videos.
func (e *Engine) SearchCatalog(ctx context.Context, keyword string) ([]Candidate, error) {
	best, err := e.searchCatalogOnce(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if len(best) >= e.minResults {
		return best, nil
	}

	completion, err := e.llm.Complete(ctx, SynonymsPrompt(keyword))
	if err != nil {
		return nil, err
	}
	for _, syn := range ParseSynonyms(completion) {
		c, err := e.searchCatalogOnce(ctx, syn)
		if err != nil {
			return nil, err
		}
		if len(c) >= e.minResults {
			return c, nil
		}
		if len(c) > len(best) {
			best = c
		}
	}

	c, err := e.searchCatalogOnce(ctx, DefaultKeyword)
	if err != nil {
		return nil, err
	}
	if len(c) > len(best) {
		best = c
	}
	return best, nil
}

func (e *Engine) searchCatalogOnce(ctx context.Context, keyword string) ([]Candidate, error) {
	items, err := e.catalog.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		out = append(out, Candidate{Description: it.Title, URL: it.URL})
	}
	return out, nil
}

// Choose asks the model which candidate fits the row's text window and
// returns its index. An unparseable or out-of-range answer picks uniformly
// at random instead of failing the row.
func (e *Engine) Choose(ctx context.Context, tc *types.TextContext, candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no candidates to choose from")
	}
	if len(candidates) == 1 {
		return 0, nil
	}
	if len(candidates) > e.maxCandidates {
		candidates = candidates[:e.maxCandidates]
	}

	descriptions := make([]string, len(candidates))
	for i, c := range candidates {
		descriptions[i] = c.Description
	}
	completion, err := e.llm.Complete(ctx, ChooserPrompt(tc, descriptions))
	if err != nil {
		return 0, err
	}

	n := ParseChoice(completion)
	if n < 1 || n > len(candidates) {
		return e.randInt(len(candidates)), nil
	}
	return n - 1, nil
}

// SplitVideosImages assigns each row index a content kind so that
// videosPercent of rows (rounded) get videos, placed at random positions.
// The returned slice is indexed by the row's original position.
func SplitVideosImages(n, videosPercent int, perm func(n int) []int) []string {
	if perm == nil {
		perm = rand.Perm
	}
	videos := (n*videosPercent + 50) / 100
	if videos > n {
		videos = n
	}

	kinds := make([]string, n)
	for i, p := range perm(n) {
		if i < videos {
			kinds[p] = types.VideoDataType
		} else {
			kinds[p] = types.ImageDataType
		}
	}
	return kinds
}
