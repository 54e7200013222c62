package enrich

import (
	"regexp"
	"sort"
	"strings"
)

var (
	cashtagPattern  = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	// no trailing boundary: "stocks" and "Corporation" count too
	businessPattern = regexp.MustCompile(`\b([A-Z]{2,5})\s+(?i:stock|shares|inc|corp|ltd)`)
)

// TickerExtractor finds stock and crypto symbols in free text.
type TickerExtractor struct {
	crypto   *regexp.Regexp
	excluded map[string]struct{}
}

// NewTickerExtractor builds an extractor for the given crypto whitelist.
// Symbols in excluded are never reported.
func NewTickerExtractor(crypto, excluded []string) *TickerExtractor {
	te := &TickerExtractor{excluded: make(map[string]struct{}, len(excluded))}
	for _, w := range excluded {
		te.excluded[strings.ToUpper(w)] = struct{}{}
	}

	var symbols []string
	for _, c := range crypto {
		if c = strings.TrimSpace(c); c != "" {
			symbols = append(symbols, regexp.QuoteMeta(strings.ToUpper(c)))
		}
	}
	if len(symbols) > 0 {
		te.crypto = regexp.MustCompile(`(?i)\b(` + strings.Join(symbols, "|") + `)\b`)
	}
	return te
}

type tickerMatch struct {
	symbol string
	pos    int
}

// Extract returns the unique symbols found in text, ordered by where they
// first appear.
func (te *TickerExtractor) Extract(text string) []string {
	out := []string{}
	if text == "" {
		return out
	}

	var matches []tickerMatch
	collect := func(re *regexp.Regexp) {
		if re == nil {
			return
		}
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			matches = append(matches, tickerMatch{
				symbol: strings.ToUpper(text[loc[2]:loc[3]]),
				pos:    loc[2],
			})
		}
	}
	collect(cashtagPattern)
	collect(businessPattern)
	collect(te.crypto)

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, skip := te.excluded[m.symbol]; skip {
			continue
		}
		if _, dup := seen[m.symbol]; dup {
			continue
		}
		seen[m.symbol] = struct{}{}
		out = append(out, m.symbol)
	}
	return out
}
