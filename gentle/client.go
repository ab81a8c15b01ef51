package gentle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// AlignResult is the forced aligner's response body.
type AlignResult struct {
	Words []AlignedWord `json:"words"`
}

// Aligner is the forced-alignment call surface, narrowed for tests.
type Aligner interface {
	Align(ctx context.Context, audioPath, transcript string) (*AlignResult, error)
}

// Client calls the forced-alignment HTTP service with a synchronous
// multipart transcription request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Align submits the narration audio and its transcript and returns the
// per-word alignment.
func (c *Client) Align(ctx context.Context, audioPath, transcript string) (*AlignResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	part, err := mw.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, err
	}
	if err := mw.WriteField("transcript", transcript); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := c.baseURL + "/transcriptions?async=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aligner call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aligner call: status %d", resp.StatusCode)
	}

	var result AlignResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("aligner call: decode: %w", err)
	}
	return &result, nil
}
