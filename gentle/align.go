// Package gentle reconstructs word-level timing from the forced aligner's
// approximate output and derives everything downstream stages need from it:
// caption rows, sentence spans, annotation time ranges and subtitle exports.
package gentle

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/zk94007/osum-vsl/shared/types"
)

const (
	// CaseSuccess is the aligner's marker for a word it matched to audio.
	CaseSuccess = "success"

	// DefaultRowCap is the caption row character limit.
	DefaultRowCap = 42

	// minRowDurationMs keeps captions on screen long enough to read.
	minRowDurationMs = 500
)

// AlignedWord is one entry of the aligner's response.
type AlignedWord struct {
	Word  string  `json:"word"`
	Case  string  `json:"case"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpokenToken is one token of the spoken transcript, remembering which
// original script token it was expanded from.
type SpokenToken struct {
	Text string
	Orig int
}

// SeparateWords tokenizes script text the same way the spoken transcript is
// built: split on whitespace and hyphens, punctuation stays attached, and a
// double-quoted run becomes one token with the quotes removed.
func SeparateWords(text string) []string {
	var out []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			out = append(out, word.String())
			word.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			end := strings.IndexByte(text[i+1:], '"')
			if end < 0 {
				// Unterminated quote stays attached to its word.
				word.WriteByte(c)
				continue
			}
			flush()
			if phrase := strings.TrimSpace(text[i+1 : i+1+end]); phrase != "" {
				out = append(out, phrase)
			}
			i += end + 1
		case c == '-' || c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			word.WriteByte(c)
		}
	}
	flush()
	return out
}

// NormalizeSpokenWords expands script tokens into the words the narrator will
// actually say: "&" becomes "and", "$400" becomes "400 dollars" ("$1" the
// singular "1 dollar"). Each spoken token keeps the index of its source token
// so timings can be folded back onto the original text.
func NormalizeSpokenWords(tokens []string) []SpokenToken {
	var out []SpokenToken
	for i, tok := range tokens {
		switch {
		case tok == "&":
			out = append(out, SpokenToken{Text: "and", Orig: i})
		case strings.HasPrefix(tok, "$") && len(tok) > 1 && unicode.IsDigit(rune(tok[1])):
			number := strings.TrimPrefix(tok, "$")
			trailing := strings.TrimLeftFunc(number, func(r rune) bool {
				return unicode.IsDigit(r) || r == ',' || r == '.'
			})
			number = strings.TrimSuffix(number, trailing)
			// Terminal separators close the sentence, not the amount.
			for len(number) > 0 {
				c := number[len(number)-1]
				if c != '.' && c != ',' {
					break
				}
				trailing = string(c) + trailing
				number = number[:len(number)-1]
			}
			unit := "dollars"
			if number == "1" {
				unit = "dollar"
			}
			out = append(out, SpokenToken{Text: number, Orig: i})
			out = append(out, SpokenToken{Text: unit + trailing, Orig: i})
		default:
			out = append(out, SpokenToken{Text: tok, Orig: i})
		}
	}
	return out
}

// SpokenText joins spoken tokens into the transcript sent to the aligner.
func SpokenText(tokens []SpokenToken) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// RepairTimings converts aligner output to millisecond word timings. Matched
// words keep their aligned times. Each run of unmatched words is spread one
// millisecond apart starting just after the previous matched word's end,
// clamped to the next matched word's start (or 0 / total duration at the
// sequence edges), and flagged fixed.
func RepairTimings(words []AlignedWord, durationSec float64) []types.Word {
	totalMs := int64(durationSec * 1000)
	out := make([]types.Word, len(words))

	for i := 0; i < len(words); {
		if words[i].Case == CaseSuccess {
			out[i] = types.Word{
				Word:        words[i].Word,
				StartTimeMs: int64(words[i].Start * 1000),
				EndTimeMs:   int64(words[i].End * 1000),
			}
			i++
			continue
		}

		run := i
		for run < len(words) && words[run].Case != CaseSuccess {
			run++
		}

		var prevEnd int64
		if i > 0 {
			prevEnd = out[i-1].EndTimeMs
		}
		nextStart := totalMs
		if run < len(words) {
			nextStart = int64(words[run].Start * 1000)
		}

		for k := i; k < run; k++ {
			t := prevEnd + int64(k-i+1)
			if t > nextStart {
				t = nextStart
			}
			out[k] = types.Word{Word: words[k].Word, StartTimeMs: t, EndTimeMs: t, Fixed: true}
		}
		i = run
	}
	return out
}

// MergeExpandedWords folds spoken-word timings back onto the original script
// tokens: a token expanded into several spoken words spans from the first
// part's start to the last part's end.
func MergeExpandedWords(spokenWords []types.Word, spoken []SpokenToken, tokens []string) []types.Word {
	out := make([]types.Word, len(tokens))
	seen := make([]bool, len(tokens))
	for i, w := range spokenWords {
		orig := spoken[i].Orig
		if !seen[orig] {
			out[orig] = types.Word{Word: tokens[orig], StartTimeMs: w.StartTimeMs, EndTimeMs: w.EndTimeMs, Fixed: w.Fixed}
			seen[orig] = true
			continue
		}
		out[orig].EndTimeMs = w.EndTimeMs
		if w.Fixed {
			out[orig].Fixed = true
		}
	}
	return out
}

// BuildRows segments timed words into caption rows bounded by the character
// cap and into sentence spans closed on terminal punctuation. Both sequences
// are gapless and non-overlapping; the final word is always kept, with its
// end clamped to the audio duration.
func BuildRows(words []types.Word, cap int, durationSec float64) (rows, sentences []types.Row) {
	if len(words) == 0 {
		return nil, nil
	}
	totalMs := int64(durationSec * 1000)

	var line string
	var rowStart int64
	for i, w := range words {
		last := i == len(words)-1
		switch {
		case line == "":
			line = w.Word
		case last || len(line)+1+len(w.Word) <= cap:
			line += " " + w.Word
		default:
			end := w.StartTimeMs
			if end-rowStart < minRowDurationMs {
				end += minRowDurationMs
			}
			rows = append(rows, types.Row{Text: strings.TrimSpace(line), StartTime: rowStart, EndTime: end})
			rowStart = end
			line = w.Word
		}
		if last {
			end := w.EndTimeMs
			if end > totalMs {
				end = totalMs
			}
			if end < rowStart {
				end = rowStart
			}
			rows = append(rows, types.Row{Text: strings.TrimSpace(line), StartTime: rowStart, EndTime: end})
		}
	}

	var sentence string
	var sentStart int64
	for i, w := range words {
		if sentence == "" {
			sentence = w.Word
		} else {
			sentence += " " + w.Word
		}
		last := i == len(words)-1
		if last || endsSentence(w.Word) {
			end := w.EndTimeMs
			if end > totalMs {
				end = totalMs
			}
			if end < sentStart {
				end = sentStart
			}
			sentences = append(sentences, types.Row{Text: strings.TrimSpace(sentence), StartTime: sentStart, EndTime: end})
			sentStart = end
			sentence = ""
		}
	}
	return rows, sentences
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')`)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return strings.HasSuffix(trimmed, "…")
}

// WithTextContext attaches each row's before/current/after text window, used
// by the content chooser prompt.
func WithTextContext(rows []types.Row) []types.Row {
	out := make([]types.Row, len(rows))
	copy(out, rows)
	for i := range out {
		ctx := &types.TextContext{Current: out[i].Text}
		if i > 0 {
			ctx.Before = out[i-1].Text
		}
		if i < len(out)-1 {
			ctx.After = out[i+1].Text
		}
		out[i].TextContext = ctx
	}
	return out
}

// MatchError reports an annotation span that does not line up with word
// boundaries in the plain text. It is a data-integrity fault in upstream
// text preparation, never retried.
type MatchError struct {
	Span   string
	Detail string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("annotation %q: %s", e.Span, e.Detail)
}

// Span is one resolved annotation occurrence.
type Span struct {
	StartTimeMs int64
	EndTimeMs   int64
}

type wordOffset struct {
	start, end int
}

// wordOffsets locates every word's character range in the plain text,
// scanning forward from the previous match so duplicate words resolve in
// order.
func wordOffsets(plain string, words []types.Word) ([]wordOffset, error) {
	lower := strings.ToLower(plain)
	offs := make([]wordOffset, len(words))
	from := 0
	for i, w := range words {
		lw := strings.ToLower(w.Word)
		idx := strings.Index(lower[from:], lw)
		if idx < 0 {
			return nil, &MatchError{Span: w.Word, Detail: "word not found in plain text"}
		}
		start := from + idx
		offs[i] = wordOffset{start: start, end: start + len(lw)}
		from = start + len(lw)
	}
	return offs, nil
}

// ResolveSpans finds every case-insensitive, word-boundary occurrence of span
// in the plain text and maps each to the time range of the words covering it.
// Occurrence boundaries that do not coincide with word boundaries are a
// MatchError.
func ResolveSpans(plain string, words []types.Word, span string) ([]Span, error) {
	offs, err := wordOffsets(plain, words)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(plain)
	needle := strings.ToLower(strings.TrimSpace(span))
	if needle == "" {
		return nil, &MatchError{Span: span, Detail: "empty span"}
	}

	var out []Span
	for from := 0; ; {
		idx := strings.Index(lower[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(needle)
		from = end

		if !atWordBoundary(plain, start-1) || !atWordBoundary(plain, end) {
			continue
		}

		first, last := -1, -1
		for i, o := range offs {
			if o.start == start {
				first = i
			}
			if o.end == end {
				last = i
				break
			}
		}
		if first < 0 || last < 0 || last < first {
			return nil, &MatchError{Span: span, Detail: "span boundaries do not align with word boundaries"}
		}
		out = append(out, Span{StartTimeMs: words[first].StartTimeMs, EndTimeMs: words[last].EndTimeMs})
	}

	if len(out) == 0 {
		return nil, &MatchError{Span: span, Detail: "not found in plain text"}
	}
	return out, nil
}

// atWordBoundary reports whether the byte at position i (may be -1 or
// len(plain)) is not part of a word.
func atWordBoundary(plain string, i int) bool {
	if i < 0 || i >= len(plain) {
		return true
	}
	r := rune(plain[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
