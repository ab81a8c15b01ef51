// Package util holds small helpers shared across stages.
package util

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// RandomIntFromInterval returns a uniform random integer in [min, max].
func RandomIntFromInterval(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// Sleep blocks for a random duration between minSec and maxSec seconds, or
// until the context is cancelled. Used to jitter retries against rate limits.
func Sleep(ctx context.Context, minSec, maxSec int) error {
	d := time.Duration(RandomIntFromInterval(minSec, maxSec)) * time.Second
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ext returns the lowercase extension (without dot) of a URL or file path.
func Ext(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// DownloadFile fetches a URL into the given local path.
func DownloadFile(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// ContentWords returns the words of text longer than 3 letters, lowercased and
// stripped of punctuation. Used as a pool for fallback search keywords.
func ContentWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()…"))
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
