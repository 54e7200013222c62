package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

const (
	sourceWidth = 18
	titleWidth  = 70
)

// printRecords writes one line per record: publish time, source, title and
// an alert marker. Widths are display columns so wide scripts stay aligned.
func printRecords(w io.Writer, records []news.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	for _, r := range records {
		when := r.PublishedAt
		if t, ok := r.Published(); ok {
			when = t.Format("2006-01-02 15:04")
		}

		line := fmt.Sprintf("%-16s  %s  %s",
			truncate(when, 16),
			runewidth.FillRight(truncate(r.Source, sourceWidth), sourceWidth),
			truncate(r.Title, titleWidth),
		)
		if r.Metadata.IsAlert {
			line += "  [" + strings.ToUpper(r.Metadata.AlertSeverity) + "]"
		}
		fmt.Fprintln(w, line)
	}
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func printStats(w io.Writer, res news.RunResult) {
	s := res.Stats
	fmt.Fprintf(w, "Run %s: fetched %d, filtered %d, duplicates %d, stored %d in %s\n",
		res.RunID, s.Fetched, s.Filtered, s.Deduplicated, s.Stored, s.Duration.Round(time.Millisecond))

	if alerts := res.Alerts(); len(alerts) > 0 {
		fmt.Fprintf(w, "%d alerts\n", len(alerts))
	}

	for _, e := range res.Errors {
		if e.Source != "" {
			fmt.Fprintf(w, "  %s [%s]: %s\n", e.Stage, e.Source, e.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", e.Stage, e.Message)
		}
	}
}
