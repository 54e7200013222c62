package pipeline

import (
	"slices"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// SortByRecency returns records ordered by published_at, newest first. The
// sort is stable. A timestamp that does not parse counts as the oldest
// possible time, so such records end up after every dated one.
func SortByRecency(records []news.Record) []news.Record {
	out := slices.Clone(records)
	if out == nil {
		out = []news.Record{}
	}
	slices.SortStableFunc(out, news.CompareRecency)
	return out
}
