// Package enrich holds the pure text functions applied to every record:
// cleaning, summarization, author and date parsing, keyword taxonomy
// matching and ticker extraction.
package enrich

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Ellipsis is appended to summaries cut mid-sentence.
const Ellipsis = "..."

// DefaultSummaryLength is the summary budget used when none is configured.
const DefaultSummaryLength = 300

var (
	bracketEllipsis = strings.NewReplacer("[…]", Ellipsis, "[...]", Ellipsis)
	boilerplateTail = regexp.MustCompile(`(?i)\s*(?:continue reading|read more)\s*(?:\.{2,3}|…)\s*$`)
)

// Clean strips markup, decodes entities, collapses whitespace and removes
// the trailing boilerplate feeds append to their descriptions.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	text := strings.Join(strings.Fields(stripTags(s)), " ")
	text = bracketEllipsis.Replace(text)
	text = boilerplateTail.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// stripTags replaces every tag with a space and keeps the decoded text.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// tokenizer gave up; keep what we have plus the raw rest
				b.Write(z.Raw())
			}
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// Summarize returns text unchanged when it fits in maxLength runes.
// Otherwise it prefers cutting after the last sentence terminator past half
// the budget, then at the last space past 70% of it (adding an ellipsis),
// and finally hard-truncates with an ellipsis.
func Summarize(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}

	clean := Clean(text)
	runes := []rune(clean)
	if len(runes) <= maxLength {
		return clean
	}

	truncated := runes[:maxLength]

	boundary := lastIndexOf(truncated, '.', '?', '!')
	if float64(boundary) > float64(maxLength)*0.5 {
		return string(runes[:boundary+1])
	}

	space := lastIndexOf(truncated, ' ')
	if float64(space) > float64(maxLength)*0.7 {
		return string(runes[:space]) + Ellipsis
	}

	return string(truncated) + Ellipsis
}

func lastIndexOf(runes []rune, targets ...rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		for _, t := range targets {
			if runes[i] == t {
				return i
			}
		}
	}
	return -1
}

// Domain extracts the host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
