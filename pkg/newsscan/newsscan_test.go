package newsscan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/config"
	"github.com/cognicore/newsscan/pkg/newsscan/filter"
	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/store/memstore"
)

const apiFixture = `{"articles":[
 {"url":"https://www.example.com/chips","title":"Semiconductor exports rise","seendate":"20240115T120000Z","domain":"example.com","language":"English"}
]}`

const feedFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test</title>
<item>
  <title>Bitcoin rallies as ETH climbs</title>
  <link>https://feed.example.net/btc</link>
  <description>Crypto markets up.</description>
  <pubDate>Tue, 16 Jan 2024 09:00:00 GMT</pubDate>
</item>
</channel></rss>`

var fixedNow = time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/doc/doc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(apiFixture))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedFixture))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(base string) *config.Config {
	cfg := config.Default()
	cfg.Proxies = []string{""}
	cfg.Request.GDELTBaseURL = base
	cfg.Request.APIProxy = ""
	cfg.Request.Delay = 0
	cfg.Sources.APIQueries = []news.CategoryQuery{{Category: "tech", Query: "(technology)"}}
	cfg.Sources.Feeds = []news.SourceDescriptor{{Name: "Test Feed", URL: base + "/feed.xml", Category: "tech"}}
	cfg.Sources.Intel = nil
	return cfg
}

func TestNewRunsConfiguredFamilies(t *testing.T) {
	srv := newTestServer(t)
	st := memstore.New()

	p, err := New(Options{
		Config:   testConfig(srv.URL),
		UseGDELT: true,
		UseFeeds: true,
		Store:    st,
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := p.Run(context.Background())
	if res.Degraded() {
		t.Fatalf("Unexpected errors: %+v", res.Errors)
	}
	if res.Stats.Fetched != 2 || res.Stats.Stored != 2 {
		t.Errorf("Expected 2 fetched and stored, got %+v", res.Stats)
	}

	if len(res.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0].Title != "Bitcoin rallies as ETH climbs" {
		t.Errorf("Expected the newest record first, got %q", res.Records[0].Title)
	}
	if res.Records[0].Source != "Test Feed" || res.Records[1].Source != "example.com" {
		t.Errorf("Unexpected sources %q, %q", res.Records[0].Source, res.Records[1].Source)
	}

	saved, _ := st.Count(context.Background())
	if saved != 2 {
		t.Errorf("Expected 2 stored records, got %d", saved)
	}
}

func TestNewSkipsDisabledFamilies(t *testing.T) {
	srv := newTestServer(t)

	p, err := New(Options{Config: testConfig(srv.URL), UseFeeds: true, Clock: clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := p.Run(context.Background())
	if len(res.Records) != 1 || res.Records[0].Source != "Test Feed" {
		t.Errorf("Expected only the feed record, got %+v", res.Records)
	}
}

func TestNewAppliesFilter(t *testing.T) {
	srv := newTestServer(t)

	p, err := New(Options{
		Config:   testConfig(srv.URL),
		UseGDELT: true,
		UseFeeds: true,
		Filter:   &filter.Config{Topics: []string{"CRYPTO"}},
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := p.Run(context.Background())
	if len(res.Records) != 1 {
		t.Fatalf("Expected 1 record after filtering, got %d", len(res.Records))
	}
	if res.Stats.Filtered != 1 {
		t.Errorf("Expected 1 filtered, got %d", res.Stats.Filtered)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Request.Timeout = 0

	_, err := New(Options{Config: cfg})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewWithoutFamilies(t *testing.T) {
	p, err := New(Options{Clock: clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := p.Run(context.Background())
	if len(res.Records) != 0 || res.Degraded() {
		t.Errorf("Expected an empty clean run, got %+v", res)
	}
}
