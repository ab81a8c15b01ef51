// Package googletts synthesizes the narration audio from the enhanced SSML.
package googletts

import (
	"fmt"
	"strings"
)

// MaxBatchBytes is the synthesis API's per-request input limit.
const MaxBatchBytes = 5000

const (
	speakOpen  = "<speak>"
	speakClose = "</speak>"
)

// SplitSSML breaks a <speak> document into batches that each fit the API
// limit when re-wrapped in <speak> tags. Splits happen only at markup token
// boundaries, never inside a tag.
func SplitSSML(ssml string, maxBytes int) ([]string, error) {
	body := strings.TrimSpace(ssml)
	if !strings.HasPrefix(body, speakOpen) || !strings.HasSuffix(body, speakClose) {
		return nil, fmt.Errorf("ssml must be a single <speak> document")
	}
	inner := body[len(speakOpen) : len(body)-len(speakClose)]

	budget := maxBytes - len(speakOpen) - len(speakClose)
	if budget <= 0 {
		return nil, fmt.Errorf("batch limit %d too small", maxBytes)
	}

	var batches []string
	var current strings.Builder
	for _, tok := range tokenizeSSML(inner) {
		if len(tok) > budget {
			return nil, fmt.Errorf("ssml token exceeds batch limit: %d bytes", len(tok))
		}
		if current.Len()+len(tok) > budget {
			batches = append(batches, speakOpen+current.String()+speakClose)
			current.Reset()
		}
		current.WriteString(tok)
	}
	if current.Len() > 0 {
		batches = append(batches, speakOpen+current.String()+speakClose)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("ssml document is empty")
	}
	return batches, nil
}

// tokenizeSSML splits markup into alternating text runs and whole tags.
func tokenizeSSML(s string) []string {
	var toks []string
	for len(s) > 0 {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			toks = append(toks, s)
			break
		}
		if open > 0 {
			toks = append(toks, s[:open])
			s = s[open:]
		}
		close := strings.IndexByte(s, '>')
		if close < 0 {
			toks = append(toks, s)
			break
		}
		toks = append(toks, s[:close+1])
		s = s[close+1:]
	}
	return toks
}
