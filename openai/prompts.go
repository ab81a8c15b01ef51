// Package openai chooses supporting visual content for each narration row:
// extract a search keyword, query a catalog with fallback, and let the
// language model pick the best candidate for the row's context.
package openai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zk94007/osum-vsl/shared/types"
)

// DefaultKeyword is the last-resort search term when every keyword and
// synonym comes back below the result threshold.
const DefaultKeyword = "diet"

// KeywordPrompt builds the few-shot "what's the key term" completion prompt.
func KeywordPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the most important search keyword from the sentence.\n\n")
	b.WriteString("Q: Losing weight starts with a healthy breakfast every morning.\nA: breakfast\n\n")
	b.WriteString("Q: Our supplement boosts your energy throughout the day.\nA: energy\n\n")
	b.WriteString("Q: Thousands of customers have transformed their bodies with this program.\nA: transformation\n\n")
	fmt.Fprintf(&b, "Q: %s\nA:", text)
	return b.String()
}

// SynonymsPrompt asks for comma-separated synonyms of a keyword.
func SynonymsPrompt(keyword string) string {
	var b strings.Builder
	b.WriteString("List synonyms of the word, separated by commas.\n\n")
	b.WriteString("Q: happy\nA: glad, cheerful, joyful\n\n")
	b.WriteString("Q: exercise\nA: workout, training, fitness\n\n")
	fmt.Fprintf(&b, "Q: %s\nA:", keyword)
	return b.String()
}

// ChooserPrompt asks which candidate description best fits the row's text
// window. Candidates are numbered from 1.
func ChooserPrompt(tc *types.TextContext, descriptions []string) string {
	var b strings.Builder
	b.WriteString("Which sentence best matches the context? Answer with the sentence number.\n\n")
	b.WriteString("Context:\n")
	if tc.Before != "" {
		fmt.Fprintf(&b, "%s ", tc.Before)
	}
	b.WriteString(tc.Current)
	if tc.After != "" {
		fmt.Fprintf(&b, " %s", tc.After)
	}
	b.WriteString("\n\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "Sentence %d: %s\n", i+1, d)
	}
	b.WriteString("\nA: Sentence")
	return b.String()
}

// ParseKeyword extracts a single lowercase keyword from the completion.
// Returns "" when the model produced nothing usable.
func ParseKeyword(completion string) string {
	text := completion
	if i := strings.LastIndex(text, "A:"); i >= 0 {
		text = text[i+2:]
	}
	if i := strings.Index(text, "Q:"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	word := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".,!?\"'"))
	if strings.ContainsAny(word, " \t") {
		word = strings.Fields(word)[0]
	}
	return word
}

// ParseSynonyms splits a comma-separated completion into single-word
// synonyms, in the order the model proposed them.
func ParseSynonyms(completion string) []string {
	text := completion
	if i := strings.LastIndex(text, "A:"); i >= 0 {
		text = text[i+2:]
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}

	var out []string
	for _, part := range strings.Split(text, ",") {
		fields := strings.Fields(strings.Trim(strings.TrimSpace(part), ".,!?\"'"))
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.ToLower(fields[0]))
	}
	return out
}

var choiceRe = regexp.MustCompile(`\d+`)

// ParseChoice extracts the chosen 1-based candidate number, or 0 when the
// completion holds no number.
func ParseChoice(completion string) int {
	m := choiceRe.FindString(completion)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
