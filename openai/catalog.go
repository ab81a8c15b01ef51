package openai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sheets "google.golang.org/api/sheets/v4"
)

// CatalogItem is one curated clip: a human title and a source reference.
type CatalogItem struct {
	Title string
	URL   string
}

// Catalog is the curated-content search surface, narrowed for tests.
type Catalog interface {
	Search(ctx context.Context, keyword string) ([]CatalogItem, error)
}

// SheetCatalog reads the curated clip list from a Google Sheet with title in
// column A and clip URL in column B. The sheet is small and changes rarely,
// so it is loaded once per process and searched in memory.
type SheetCatalog struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string

	mu    sync.Mutex
	items []CatalogItem
}

func NewSheetCatalog(ctx context.Context, spreadsheetID, readRange string) (*SheetCatalog, error) {
	svc, err := sheets.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if readRange == "" {
		readRange = "A:B"
	}
	return &SheetCatalog{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

func (c *SheetCatalog) load(ctx context.Context) ([]CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items != nil {
		return c.items, nil
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read catalog sheet: %w", err)
	}
	for _, row := range resp.Values {
		if len(row) < 2 {
			continue
		}
		title, _ := row[0].(string)
		url, _ := row[1].(string)
		if title == "" || url == "" {
			continue
		}
		c.items = append(c.items, CatalogItem{Title: title, URL: url})
	}
	return c.items, nil
}

// Search returns items whose title contains the keyword as a whole word,
// case-insensitive.
func (c *SheetCatalog) Search(ctx context.Context, keyword string) ([]CatalogItem, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return MatchByTitle(items, keyword), nil
}

// MatchByTitle filters items whose title words include the keyword.
func MatchByTitle(items []CatalogItem, keyword string) []CatalogItem {
	kw := strings.ToLower(keyword)
	var out []CatalogItem
	for _, it := range items {
		for _, w := range strings.Fields(strings.ToLower(it.Title)) {
			if strings.Trim(w, ".,!?\"'") == kw {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
