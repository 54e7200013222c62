package newsscan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/internalerr"
	"github.com/cognicore/newsscan/pkg/newsscan/store"
	"github.com/cognicore/newsscan/pkg/newsscan/store/jsonl"
	"github.com/cognicore/newsscan/pkg/newsscan/store/memstore"
	"github.com/cognicore/newsscan/pkg/newsscan/store/sqlite"
)

// Storage backend kinds accepted by OpenStore.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Backend selects and configures a storage adapter.
type Backend struct {
	Kind string
	// Path is the file to use. When empty, jsonl writes a timestamped file
	// in Dir and sqlite uses Dir/news.db.
	Path   string
	Dir    string
	Pretty bool
	Append bool
}

// OpenStore resolves the backend at startup. BackendNone yields a nil store.
// An unknown kind or an adapter that cannot open reports
// ErrBackendUnavailable.
func OpenStore(ctx context.Context, b Backend, logger *slog.Logger) (store.Store, error) {
	switch b.Kind {
	case BackendJSONL:
		opts := jsonl.Options{Pretty: b.Pretty, Append: b.Append, Logger: logger}
		var (
			st  *jsonl.Store
			err error
		)
		if b.Path == "" {
			st, err = jsonl.WithTimestamp(b.Dir, time.Now(), opts)
		} else {
			st, err = jsonl.Open(b.Path, opts)
		}
		if err != nil {
			return nil, err
		}
		return st, nil

	case BackendSQLite:
		path := b.Path
		if path == "" {
			path = filepath.Join(b.Dir, "news.db")
		}
		if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: %v", internalerr.ErrBackendUnavailable, err)
			}
		}
		st, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return st, nil

	case BackendMemory:
		return memstore.New(), nil

	case BackendNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", internalerr.ErrBackendUnavailable, b.Kind)
	}
}
