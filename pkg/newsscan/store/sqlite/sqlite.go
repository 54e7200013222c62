// Package sqlite is the relational store.Store on modernc SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
)

// Store implements store.Store and store.Querier.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path with WAL enabled and the
// schema in place. Any failure is reported as ErrBackendUnavailable.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable(err)
	}

	// every :memory: connection is its own database
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: sqlite: %v", internalerr.ErrBackendUnavailable, err)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the table and indexes if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS news_items (
	id TEXT PRIMARY KEY,
	source TEXT,
	url TEXT,
	title TEXT,
	published_at TEXT,
	fetched_at TEXT,
	authors TEXT,
	summary TEXT,
	content_text TEXT,
	tickers TEXT,
	topics TEXT,
	language TEXT,
	metadata TEXT,
	created_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items(published_at);
CREATE INDEX IF NOT EXISTS idx_news_items_source ON news_items(source);
CREATE INDEX IF NOT EXISTS idx_news_items_created_at ON news_items(created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Save upserts every record in one transaction.
func (s *Store) Save(ctx context.Context, records []news.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &internalerr.StoreError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	const stmt = `
INSERT OR REPLACE INTO news_items
	(id, source, url, title, published_at, fetched_at, authors, summary,
	 content_text, tickers, topics, language, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	ins, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return &internalerr.StoreError{Op: "save", Err: err}
	}
	defer ins.Close()

	createdAt := news.Timestamp(s.now())
	for _, r := range records {
		authors, err := encodeList(r.Authors)
		if err != nil {
			return &internalerr.StoreError{Op: "save", Err: err}
		}
		tickers, err := encodeList(r.Tickers)
		if err != nil {
			return &internalerr.StoreError{Op: "save", Err: err}
		}
		topics, err := encodeList(r.Topics)
		if err != nil {
			return &internalerr.StoreError{Op: "save", Err: err}
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return &internalerr.StoreError{Op: "save", Err: fmt.Errorf("metadata of %s: %w", r.ID, err)}
		}

		if _, err := ins.ExecContext(ctx,
			r.ID, r.Source, r.URL, r.Title, r.PublishedAt, r.FetchedAt,
			authors, r.Summary, r.ContentText, tickers, topics, r.Language,
			string(meta), createdAt,
		); err != nil {
			return &internalerr.StoreError{Op: "save", Err: fmt.Errorf("insert %s: %w", r.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &internalerr.StoreError{Op: "save", Err: err}
	}
	return nil
}

// Load returns every record, newest first.
func (s *Store) Load(ctx context.Context) ([]news.Record, error) {
	return s.Query(ctx, store.Query{})
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM news_items`); err != nil {
		return &internalerr.StoreError{Op: "clear", Err: err}
	}
	return nil
}

// recencyOrder puts unparseable timestamps last, like the sort stage.
const recencyOrder = ` ORDER BY (julianday(published_at) IS NULL), published_at DESC, id`

// Query returns matching records, newest first.
func (s *Store) Query(ctx context.Context, q store.Query) ([]news.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.AlertsOnly {
		where = append(where, "json_extract(metadata, '$.is_alert') = 1")
	}
	if !q.Since.IsZero() {
		where = append(where, "julianday(published_at) >= julianday(?)")
		args = append(args, news.Timestamp(q.Since))
	}

	query := `SELECT id, source, url, title, published_at, fetched_at, authors, summary,
	content_text, tickers, topics, language, metadata FROM news_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += recencyOrder
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &internalerr.StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	out := []news.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, &internalerr.StoreError{Op: "query", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &internalerr.StoreError{Op: "query", Err: err}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_items`).Scan(&n); err != nil {
		return 0, &internalerr.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Sources returns per-source record counts, most records first.
func (s *Store) Sources(ctx context.Context) ([]store.SourceCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source, COUNT(*) AS n FROM news_items
GROUP BY source
ORDER BY n DESC, source`)
	if err != nil {
		return nil, &internalerr.StoreError{Op: "sources", Err: err}
	}
	defer rows.Close()

	var out []store.SourceCount
	for rows.Next() {
		var sc store.SourceCount
		var src sql.NullString
		if err := rows.Scan(&src, &sc.Count); err != nil {
			return nil, &internalerr.StoreError{Op: "sources", Err: err}
		}
		sc.Source = src.String
		out = append(out, sc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (news.Record, error) {
	var r news.Record
	var source, url, title, published, fetched sql.NullString
	var authors, summary, content, tickers sql.NullString
	var topics, language, metadata sql.NullString
	if err := row.Scan(&r.ID, &source, &url, &title, &published, &fetched,
		&authors, &summary, &content, &tickers, &topics, &language, &metadata); err != nil {
		return r, err
	}

	r.Source = source.String
	r.URL = url.String
	r.Title = title.String
	r.PublishedAt = published.String
	r.FetchedAt = fetched.String
	r.Summary = summary.String
	r.ContentText = content.String
	r.Language = language.String

	var err error
	if r.Authors, err = decodeList(authors.String); err != nil {
		return r, fmt.Errorf("authors of %s: %w", r.ID, err)
	}
	if r.Tickers, err = decodeList(tickers.String); err != nil {
		return r, fmt.Errorf("tickers of %s: %w", r.ID, err)
	}
	if r.Topics, err = decodeList(topics.String); err != nil {
		return r, fmt.Errorf("topics of %s: %w", r.ID, err)
	}
	if metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return r, fmt.Errorf("metadata of %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	return string(data), err
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
