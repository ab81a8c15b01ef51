package openai

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// LLM is the completion surface the selection engine needs.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CohereLLM backs the prompts with the Cohere generate API.
type CohereLLM struct {
	client *cohereclient.Client
}

func NewCohereLLM(apiKey string) *CohereLLM {
	return &CohereLLM{client: cohereclient.NewClient(cohereclient.WithToken(apiKey))}
}

// Complete runs one completion. Generation stops at the next "Q:" so the
// model cannot continue the few-shot pattern past its own answer.
func (c *CohereLLM) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := 64
	temperature := 0.3

	resp, err := c.client.Generate(ctx, &cohere.GenerateRequest{
		Prompt:        prompt,
		MaxTokens:     &maxTokens,
		Temperature:   &temperature,
		StopSequences: []string{"Q:"},
	})
	if err != nil {
		return "", fmt.Errorf("cohere generate: %w", err)
	}
	if len(resp.Generations) == 0 {
		return "", fmt.Errorf("cohere generate: empty response")
	}
	return resp.Generations[0].Text, nil
}
