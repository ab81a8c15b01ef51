package servicepipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zk94007/osum-vsl/shared/types"
)

// EnhancerClient calls the external script enhancement function. It turns a
// raw sales script into SSML plus the annotation lists (disclaimers,
// citations, image markers) parsed out of the markup.
type EnhancerClient struct {
	url        string
	user       string
	password   string
	httpClient *http.Client
}

func NewEnhancerClient(url, user, password string) *EnhancerClient {
	return &EnhancerClient{
		url:      url,
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// EnhanceResult is the enhancer function's response body.
type EnhanceResult struct {
	SSML         string             `json:"ssml"`
	EnhancedText string             `json:"enhancedText"`
	PlainText    string             `json:"plainText"`
	Disclaimers  []types.Disclaimer `json:"disclaimers"`
	Citations    []types.Citation   `json:"citations"`
	Images       []types.Image      `json:"images"`
}

// Enhance submits the script and returns the parsed enhancement.
func (c *EnhancerClient) Enhance(ctx context.Context, script string) (*EnhanceResult, error) {
	body, err := json.Marshal(map[string]string{"script": script})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enhancer call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enhancer call: status %d", resp.StatusCode)
	}

	var result EnhanceResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("enhancer call: decode: %w", err)
	}
	if result.SSML == "" {
		return nil, fmt.Errorf("enhancer call: empty ssml in response")
	}
	return &result, nil
}
