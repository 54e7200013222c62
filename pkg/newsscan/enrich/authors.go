package enrich

import (
	"regexp"
	"strings"
)

var (
	byPrefix       = regexp.MustCompile(`(?i)^by\s+`)
	authorSplitter = regexp.MustCompile(`\s+and\s+|,`)
)

// ParseAuthors turns a source author field into an ordered list of names.
// Lists are cleaned element-wise; a single string loses a leading "By " and
// is split on " and " or commas. Empty names are dropped.
func ParseAuthors(v any) []string {
	out := []string{}

	switch val := v.(type) {
	case nil:
	case []string:
		for _, s := range val {
			if name := Clean(s); name != "" {
				out = append(out, name)
			}
		}
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if name := Clean(s); name != "" {
				out = append(out, name)
			}
		}
	case string:
		s := byPrefix.ReplaceAllString(strings.TrimSpace(Clean(val)), "")
		for _, part := range authorSplitter.Split(s, -1) {
			if name := strings.TrimSpace(part); name != "" {
				out = append(out, name)
			}
		}
	}

	return out
}
