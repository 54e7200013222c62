// Package jsonl stores records as line-delimited JSON files.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// maxLine bounds a single line read by Load.
const maxLine = 8 << 20

// Options configures a file store.
type Options struct {
	// Pretty writes each record indented over several lines.
	Pretty bool
	// Append adds to an existing file instead of replacing it.
	Append bool
	Logger *slog.Logger
}

// Store is a file-backed store.Store. It does not lock the file; concurrent
// writers to one path race.
type Store struct {
	path   string
	opts   Options
	logger *slog.Logger
}

// Open returns a store writing to path, creating the parent directory.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty jsonl path", internalerr.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &internalerr.StoreError{Op: "open", Err: err}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, opts: opts, logger: logger.With("store", "jsonl", "path", path)}, nil
}

// WithTimestamp opens news-<UTC timestamp>.jsonl inside dir.
func WithTimestamp(dir string, now time.Time, opts Options) (*Store, error) {
	name := "news-" + now.UTC().Format("20060102T150405Z") + ".jsonl"
	return Open(filepath.Join(dir, name), opts)
}

// Path returns the file the store writes to.
func (s *Store) Path() string { return s.path }

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, records []news.Record) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if s.opts.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return &internalerr.StoreError{Op: "save", Err: err}
	}

	w := bufio.NewWriter(f)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			f.Close()
			return &internalerr.StoreError{Op: "save", Err: err}
		}
		data, err := s.encode(r)
		if err != nil {
			f.Close()
			return &internalerr.StoreError{Op: "save", Err: fmt.Errorf("encode %s: %w", r.ID, err)}
		}
		w.Write(data)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return &internalerr.StoreError{Op: "save", Err: err}
	}
	if err := f.Close(); err != nil {
		return &internalerr.StoreError{Op: "save", Err: err}
	}

	s.logger.Debug("saved", "records", len(records))
	return nil
}

func (s *Store) encode(r news.Record) ([]byte, error) {
	if s.opts.Pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// Load implements store.Store. A missing file yields no records. Entries
// that do not decode are skipped with a warning. Pretty-printed entries are
// reassembled by accumulating lines until they form a complete object; an
// unindented '{' always starts a new entry.
func (s *Store) Load(ctx context.Context) ([]news.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []news.Record{}, nil
	}
	if err != nil {
		return nil, &internalerr.StoreError{Op: "load", Err: err}
	}
	defer f.Close()

	records := []news.Record{}
	var pending bytes.Buffer
	pendingLine := 0

	decode := func(data []byte, line int) {
		var r news.Record
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Warn("skipping malformed entry", "line", line, "err", err)
			return
		}
		records = append(records, r)
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	for n := 1; sc.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, &internalerr.StoreError{Op: "load", Err: err}
		}

		raw := sc.Bytes()
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		// pretty output indents everything but the top-level braces
		startsObject := raw[0] == '{'

		if pending.Len() > 0 && startsObject {
			s.logger.Warn("skipping truncated entry", "line", pendingLine)
			pending.Reset()
		}

		if pending.Len() == 0 {
			if json.Valid(line) {
				decode(line, n)
				continue
			}
			if !startsObject {
				s.logger.Warn("skipping malformed entry", "line", n)
				continue
			}
			pendingLine = n
		}

		pending.Write(line)
		pending.WriteByte('\n')

		if json.Valid(pending.Bytes()) {
			decode(pending.Bytes(), pendingLine)
			pending.Reset()
		}
	}

	if err := sc.Err(); err != nil {
		return records, &internalerr.StoreError{Op: "load", Err: err}
	}
	if pending.Len() > 0 {
		s.logger.Warn("skipping truncated entry", "line", pendingLine)
	}

	return records, nil
}

// Clear implements store.Store. A missing file is not an error.
func (s *Store) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &internalerr.StoreError{Op: "clear", Err: err}
	}
	return nil
}
