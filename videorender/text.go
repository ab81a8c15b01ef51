package videorender

import (
	"fmt"
	"strings"
)

// glyphWidthRatio estimates average glyph width as a fraction of font size,
// used to wrap text to the profile's pixel width.
const glyphWidthRatio = 0.6

// lineSpacingRatio sets the distance between stacked lines relative to font
// size.
const lineSpacingRatio = 1.4

// WrapText breaks text into lines no wider than maxChars, never splitting a
// word.
func WrapText(text string, maxChars int) []string {
	if maxChars <= 0 {
		return []string{text}
	}
	var lines []string
	var line string
	for _, w := range strings.Fields(text) {
		switch {
		case line == "":
			line = w
		case len(line)+1+len(w) <= maxChars:
			line += " " + w
		default:
			lines = append(lines, line)
			line = w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// maxLineChars computes the wrap width for a style within the profile.
func maxLineChars(p *Profile, style *TextStyle) int {
	usable := p.Width - 2*style.MarginX
	per := int(float64(style.FontSize) * glyphWidthRatio)
	if per <= 0 {
		per = 1
	}
	n := usable / per
	if n < 8 {
		n = 8
	}
	return n
}

// EscapeDrawText makes text safe inside a drawtext filter expression.
// Straight quotes become typographic ones rather than fighting the filter
// graph's quoting rules.
func EscapeDrawText(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`'`, "’",
		`"`, "”",
		`%`, `\%`,
		`:`, `\:`,
		`,`, `\,`,
	).Replace(s)
}

// BuildTextFilterScript renders the partitioned segments into a drawtext
// filter chain for -filter_complex_script. Per segment: disclaimers stack at
// the top right, citations at the bottom left, subtitles bottom center,
// lifted above however many citation lines share the segment.
func BuildTextFilterScript(segments []Segment, p *Profile) string {
	var filters []string

	for _, seg := range segments {
		start := float64(seg.StartTime) / 1000
		end := float64(seg.EndTime) / 1000
		enable := fmt.Sprintf("enable='between(t,%.3f,%.3f)'", start, end)

		citationLines := 0
		for _, item := range seg.Lines {
			if item.Kind != KindCitation {
				continue
			}
			for li, line := range WrapText(item.Text, maxLineChars(p, &p.Citation)) {
				lineH := int(float64(p.Citation.FontSize) * lineSpacingRatio)
				y := p.Height - p.Citation.MarginY - (citationLines+li+1)*lineH
				filters = append(filters, drawText(&p.Citation, line,
					fmt.Sprintf("%d", p.Citation.MarginX),
					fmt.Sprintf("%d", y),
					enable))
			}
			citationLines += len(WrapText(item.Text, maxLineChars(p, &p.Citation)))
		}

		disclaimerLines := 0
		for _, item := range seg.Lines {
			if item.Kind != KindDisclaimer {
				continue
			}
			for li, line := range WrapText(item.Text, maxLineChars(p, &p.Disclaimer)) {
				lineH := int(float64(p.Disclaimer.FontSize) * lineSpacingRatio)
				y := p.Disclaimer.MarginY + (disclaimerLines+li)*lineH
				filters = append(filters, drawText(&p.Disclaimer, line,
					fmt.Sprintf("w-text_w-%d", p.Disclaimer.MarginX),
					fmt.Sprintf("%d", y),
					enable))
			}
			disclaimerLines += len(WrapText(item.Text, maxLineChars(p, &p.Disclaimer)))
		}

		// Subtitles sit above any citation lines active in the same segment.
		citationH := citationLines * int(float64(p.Citation.FontSize)*lineSpacingRatio)
		subtitleLine := 0
		for _, item := range seg.Lines {
			if item.Kind != KindSubtitle {
				continue
			}
			lines := WrapText(item.Text, maxLineChars(p, &p.Subtitle))
			lineH := int(float64(p.Subtitle.FontSize) * lineSpacingRatio)
			for li, line := range lines {
				offset := (subtitleLine + len(lines) - li) * lineH
				y := p.Height - p.Subtitle.MarginY - citationH - offset
				filters = append(filters, drawText(&p.Subtitle, line,
					"(w-text_w)/2",
					fmt.Sprintf("%d", y),
					enable))
			}
			subtitleLine += len(lines)
		}
	}

	return strings.Join(filters, ",\n")
}

func drawText(style *TextStyle, text, x, y, enable string) string {
	return fmt.Sprintf(
		"drawtext=fontfile=%s:text='%s':fontsize=%d:fontcolor=%s:x=%s:y=%s:%s",
		style.FontFile, EscapeDrawText(text), style.FontSize, style.FontColor, x, y, enable)
}
