package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/config"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Example Channel</title>
  <item>
    <title><![CDATA[Bitcoin rallies as $ETH gains]]></title>
    <link>https://www.example.com/markets/a</link>
    <description>&lt;p&gt;Crypto markets up. Read more...&lt;/p&gt;</description>
    <content:encoded><![CDATA[<p>Full text about <b>bitcoin</b></p>]]></content:encoded>
    <pubDate>Mon, 15 Jan 2024 12:00:00 GMT</pubDate>
    <dc:creator>By Jane Doe and John Roe</dc:creator>
  </item>
  <item>
    <description>An entry without title or link</description>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <title type="html">Ceasefire talks resume in Gaza</title>
    <link rel="alternate" href="https://example.org/posts/1"/>
    <link rel="self" href="https://example.org/self/1"/>
    <summary>Negotiators met again.</summary>
    <updated>2024-01-14T08:00:00Z</updated>
    <author><name>Ann Lee</name></author>
  </entry>
</feed>`

func TestParseFeedRSS(t *testing.T) {
	entries, skipped := ParseFeed(rssFixture)

	if skipped != 1 {
		t.Errorf("Expected 1 skipped entry, got %d", skipped)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.Title != "Bitcoin rallies as $ETH gains" {
		t.Errorf("Unexpected title %q", e.Title)
	}
	if e.Link != "https://www.example.com/markets/a" {
		t.Errorf("Unexpected link %q", e.Link)
	}
	if e.Description != "Crypto markets up." {
		t.Errorf("Unexpected description %q", e.Description)
	}
	if e.Content != "Full text about bitcoin" {
		t.Errorf("content:encoded should be preferred, got %q", e.Content)
	}
	if e.Author != "By Jane Doe and John Roe" {
		t.Errorf("Unexpected author %q", e.Author)
	}
}

func TestParseFeedAtom(t *testing.T) {
	entries, skipped := ParseFeed(atomFixture)
	if skipped != 0 || len(entries) != 1 {
		t.Fatalf("Expected 1 entry and no skips, got %d/%d", len(entries), skipped)
	}

	e := entries[0]
	if e.Link != "https://example.org/posts/1" {
		t.Errorf("Unexpected link %q", e.Link)
	}
	if e.Author != "Ann Lee" {
		t.Errorf("Atom author name not extracted, got %q", e.Author)
	}
	if e.Published != "2024-01-14T08:00:00Z" {
		t.Errorf("Unexpected date %q", e.Published)
	}
	if e.Description != "Negotiators met again." {
		t.Errorf("Unexpected summary %q", e.Description)
	}
}

func TestParseFeedAuthorPreference(t *testing.T) {
	doc := `<rss><channel><item><title>T</title>
<creator>Third</creator><dc:creator>Second</dc:creator><author>First</author>
</item></channel></rss>`

	entries, _ := ParseFeed(doc)
	if len(entries) != 1 || entries[0].Author != "First" {
		t.Errorf("author should be preferred over dc:creator, got %+v", entries)
	}
}

func TestParseFeedFallsBackToBlockScan(t *testing.T) {
	// no rss, feed or rdf root, so gofeed cannot detect the format
	doc := `<export>
<entry>
  <title>Loose entry</title>
  <link rel="self" href="https://example.net/self"/>
  <link rel="alternate" href="https://example.net/story"/>
  <published>Tue, 10 Jun 2003 04:00:00 PDT</published>
</entry>
<entry><summary>nothing to key on</summary></entry>
</export>`

	entries, skipped := ParseFeed(doc)
	if skipped != 1 || len(entries) != 1 {
		t.Fatalf("Expected 1 entry and 1 skip, got %d/%d", len(entries), skipped)
	}
	if entries[0].Title != "Loose entry" {
		t.Errorf("Unexpected title %q", entries[0].Title)
	}
	if entries[0].Link != "https://example.net/story" {
		t.Errorf("Alternate link should win, got %q", entries[0].Link)
	}
	if !entries[0].PublishedTime.IsZero() {
		t.Errorf("Block scan has no parsed time, got %v", entries[0].PublishedTime)
	}
}

func TestParseFeedKeepsLibraryDate(t *testing.T) {
	entries, _ := ParseFeed(atomFixture)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	want := time.Date(2024, 1, 14, 8, 0, 0, 0, time.UTC)
	if !entries[0].PublishedTime.Equal(want) {
		t.Errorf("Expected parsed time %v, got %v", want, entries[0].PublishedTime)
	}
}

func TestFeedsPublishedAt(t *testing.T) {
	f := newTestFeeds(t, nil, nil)
	fallback := time.Date(2023, 3, 1, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry FeedEntry
		want  string
	}{
		{"legacy zone", FeedEntry{Published: "Tue, 10 Jun 2003 04:00:00 PDT", PublishedTime: fallback}, "2003-06-10T11:00:00Z"},
		{"library time", FeedEntry{Published: "Wednesday the 1st", PublishedTime: fallback}, "2023-03-01T06:00:00Z"},
		{"clock", FeedEntry{Published: "soon"}, news.Timestamp(testNow())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.publishedAt(tt.entry); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseFeedEmpty(t *testing.T) {
	entries, skipped := ParseFeed("<rss><channel></channel></rss>")
	if len(entries) != 0 || skipped != 0 {
		t.Errorf("Expected nothing, got %d entries, %d skipped", len(entries), skipped)
	}
}

func newTestFeeds(t *testing.T, feeds []news.SourceDescriptor, proxies []string) *Feeds {
	t.Helper()
	comp := config.Default().Build(testNow)
	return NewFeeds(FeedOptions{
		Feeds:    feeds,
		Proxies:  proxies,
		Timeout:  2 * time.Second,
		Taxonomy: comp.Taxonomy,
		Tickers:  comp.Tickers,
		Now:      testNow,
	})
}

func TestFeedsFetchFeedMapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "application/rss+xml") {
			t.Errorf("Missing feed Accept header: %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	src := news.SourceDescriptor{Name: "Example", URL: srv.URL + "/rss", Category: "finance"}
	f := newTestFeeds(t, []news.SourceDescriptor{src}, nil)

	records, err := f.FetchFeed(context.Background(), src)
	if err != nil {
		t.Fatalf("FetchFeed failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.ID != news.ID("Example", "https://www.example.com/markets/a") {
		t.Errorf("Unexpected id %s", rec.ID)
	}
	if rec.Source != "Example" || rec.Metadata.Category != "finance" {
		t.Errorf("Unexpected source/category %q/%q", rec.Source, rec.Metadata.Category)
	}
	if rec.Metadata.Domain != "example.com" {
		t.Errorf("Unexpected domain %q", rec.Metadata.Domain)
	}
	if rec.PublishedAt != "2024-01-15T12:00:00Z" {
		t.Errorf("Unexpected published_at %q", rec.PublishedAt)
	}
	if strings.Join(rec.Authors, "|") != "Jane Doe|John Roe" {
		t.Errorf("Unexpected authors %v", rec.Authors)
	}
	if strings.Join(rec.Tickers, ",") != "ETH" {
		t.Errorf("Expected [ETH], got %v", rec.Tickers)
	}
	if rec.ContentText != "Full text about bitcoin" {
		t.Errorf("Unexpected content %q", rec.ContentText)
	}
	found := false
	for _, topic := range rec.Topics {
		if topic == "CRYPTO" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected CRYPTO topic, got %v", rec.Topics)
	}
}

func TestFeedsProxyFallback(t *testing.T) {
	var proxied, direct atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/relay" {
			proxied.Add(1)
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<!DOCTYPE html><html><body>blocked</body></html>"))
			return
		}
		direct.Add(1)
		w.Write([]byte(atomFixture))
	}))
	defer srv.Close()

	src := news.SourceDescriptor{Name: "Atom", URL: srv.URL + "/feed", Category: "intel"}
	f := newTestFeeds(t, []news.SourceDescriptor{src}, []string{srv.URL + "/relay?url=", ""})

	records, err := f.FetchCategory(context.Background(), "intel")
	if err != nil {
		t.Fatalf("FetchCategory failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if proxied.Load() != 1 || direct.Load() != 1 {
		t.Errorf("Expected one relay attempt then a direct one, got %d/%d", proxied.Load(), direct.Load())
	}
	if !records[0].Metadata.IsAlert || records[0].Metadata.AlertKeyword != "ceasefire" {
		t.Errorf("Expected ceasefire alert, got %+v", records[0].Metadata)
	}
	if records[0].Metadata.Region != "MENA" {
		t.Errorf("Expected MENA region, got %q", records[0].Metadata.Region)
	}
}

func TestFeedsFailureIsIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	feeds := []news.SourceDescriptor{
		{Name: "Broken", URL: srv.URL + "/broken", Category: "tech"},
		{Name: "Good", URL: srv.URL + "/good", Category: "tech"},
		{Name: "Other", URL: srv.URL + "/other", Category: "finance"},
	}
	f := newTestFeeds(t, feeds, nil)

	batch, err := f.FetchAll(context.Background(), []string{"tech"})
	if err != nil {
		t.Fatalf("FetchAll should not fail: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Source != "Good" {
		t.Errorf("Expected only the Good feed's record, got %+v", batch.Records)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].Source != "Broken" {
		t.Errorf("Expected a Broken failure, got %+v", batch.Failures)
	}
}

func TestCheckXML(t *testing.T) {
	tests := []struct {
		body string
		ok   bool
	}{
		{"<rss></rss>", true},
		{"  \n<?xml version=\"1.0\"?><feed/>", true},
		{"", false},
		{"plain text", false},
		{"<!DOCTYPE html><html></html>", false},
		{"<HTML><body>err</body></HTML>", false},
	}

	for _, tt := range tests {
		err := checkXML([]byte(tt.body))
		if (err == nil) != tt.ok {
			t.Errorf("checkXML(%q) error = %v, want ok=%v", tt.body, err, tt.ok)
		}
	}
}

func TestPacerSpacesRequests(t *testing.T) {
	p := newPacer(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("Three paced calls should take about two delays, took %v", elapsed)
	}
}

func TestPacerFirstCallImmediate(t *testing.T) {
	p := newPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := p.wait(ctx); err != nil {
		t.Errorf("First wait should not block: %v", err)
	}
}
