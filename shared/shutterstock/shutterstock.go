// Package shutterstock is a minimal client for the stock media search API,
// covering only what content selection needs: keyword search over videos and
// images with previews it can re-host.
package shutterstock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const apiBase = "https://api.shutterstock.com/v2"

// Media is one search hit. URL points at a downloadable preview asset.
type Media struct {
	ID          string
	Description string
	URL         string
}

// Client talks to the search API with basic auth (consumer key/secret).
type Client struct {
	key        string
	secret     string
	httpClient *http.Client
}

func NewClient(key, secret string) *Client {
	return &Client{
		key:    key,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type videoSearchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Assets      struct {
			PreviewMP4 struct {
				URL string `json:"url"`
			} `json:"preview_mp4"`
		} `json:"assets"`
	} `json:"data"`
}

type imageSearchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Assets      struct {
			Preview1000 struct {
				URL string `json:"url"`
			} `json:"preview_1000"`
			Preview struct {
				URL string `json:"url"`
			} `json:"preview"`
		} `json:"assets"`
	} `json:"data"`
}

// SearchVideos returns up to perPage video hits for the query.
func (c *Client) SearchVideos(ctx context.Context, query string, perPage int) ([]Media, error) {
	var resp videoSearchResponse
	if err := c.get(ctx, "/videos/search", query, perPage, &resp); err != nil {
		return nil, err
	}
	out := make([]Media, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Assets.PreviewMP4.URL == "" {
			continue
		}
		out = append(out, Media{ID: d.ID, Description: d.Description, URL: d.Assets.PreviewMP4.URL})
	}
	return out, nil
}

// SearchImages returns up to perPage image hits for the query.
func (c *Client) SearchImages(ctx context.Context, query string, perPage int) ([]Media, error) {
	var resp imageSearchResponse
	if err := c.get(ctx, "/images/search", query, perPage, &resp); err != nil {
		return nil, err
	}
	out := make([]Media, 0, len(resp.Data))
	for _, d := range resp.Data {
		u := d.Assets.Preview1000.URL
		if u == "" {
			u = d.Assets.Preview.URL
		}
		if u == "" {
			continue
		}
		out = append(out, Media{ID: d.ID, Description: d.Description, URL: u})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path, query string, perPage int, out interface{}) error {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shutterstock %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutterstock %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("shutterstock %s: decode: %w", path, err)
	}
	return nil
}
