// Package connector fetches articles from external sources and maps them to
// news.Record values.
package connector

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// maxBodyBytes bounds every response body read.
const maxBodyBytes = 16 << 20

// Connector is the capability the pipeline depends on. FetchCategory
// returns the records of one category or the error that emptied it;
// FetchAll walks several categories and never stops at a single failure.
type Connector interface {
	Name() string
	FetchCategory(ctx context.Context, category string) ([]news.Record, error)
	FetchAll(ctx context.Context, categories []string) (Batch, error)
}

// Failure is a per-source error recorded while the batch kept going.
type Failure struct {
	Source string
	Err    error
}

// Batch is the fail-soft outcome of FetchAll: whatever was fetched, plus
// the sources that contributed nothing because they failed.
type Batch struct {
	Records  []news.Record
	Failures []Failure
}

func (b *Batch) add(source string, records []news.Record, err error) {
	b.Records = append(b.Records, records...)
	if err != nil {
		b.Failures = append(b.Failures, Failure{Source: source, Err: err})
	}
}

// pacer spaces consecutive requests of one fetch loop by at least delay.
// The first request goes out immediately.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(delay time.Duration) *pacer {
	if delay <= 0 {
		return &pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// withProxy routes target through a relay prefix. An empty prefix means a
// direct request.
func withProxy(proxy, target string) string {
	if proxy == "" {
		return target
	}
	return proxy + encodeURIComponent(target)
}

// uriComponentUnescape restores the characters QueryEscape escapes but
// encodeURIComponent leaves alone.
var uriComponentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes s exactly as the JavaScript function of the
// same name, which is what relay services expect for a wrapped URL.
func encodeURIComponent(s string) string {
	return uriComponentUnescape.Replace(url.QueryEscape(s))
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{}
}

func defaultLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func defaultNow(now func() time.Time) func() time.Time {
	if now != nil {
		return now
	}
	return time.Now
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
