package logs

import (
	"regexp"
	"strings"

	"github.com/charliek/logan/internal/domain"
)

// Highlight wraps every literal occurrence of expression in text with open
// and close. It does not interpret expression as a regular expression, so a
// non-literal search expression highlights only its literal occurrences;
// use MatchSpans and Render for regexp-accurate highlighting.
func Highlight(text, expression, open, close string) string {
	if expression == "" {
		return text
	}
	return strings.ReplaceAll(text, expression, open+expression+close)
}

// MatchSpans returns the spans of every non-empty match of re in text
func MatchSpans(text string, re *regexp.Regexp) []domain.Span {
	if re == nil {
		return nil
	}
	var spans []domain.Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		spans = append(spans, domain.Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// Render rebuilds text with each span passed through wrap. Spans must be
// ordered and non-overlapping, as MatchSpans returns them; out of range or
// overlapping spans are ignored.
func Render(text string, spans []domain.Span, wrap func(string) string) string {
	if len(spans) == 0 || wrap == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, sp := range spans {
		if sp.Start < pos || sp.End > len(text) || sp.Start >= sp.End {
			continue
		}
		b.WriteString(text[pos:sp.Start])
		b.WriteString(wrap(text[sp.Start:sp.End]))
		pos = sp.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
