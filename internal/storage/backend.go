// Package storage persists gallery snapshots and preferences. Three backends
// are provided: a bbolt document store and a SQLite document store, which
// write one record per item, and a blob file that holds the whole gallery in a
// single JSON value under a size quota.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"fygallery/internal/gallery"
)

// Backend kinds accepted by Open.
const (
	KindBolt   = "bolt"
	KindSQLite = "sqlite"
	KindBlob   = "blob"
)

var (
	// ErrQuotaExceeded is returned when a snapshot does not fit the backend.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrUnavailable is returned when a backend cannot be opened at all.
	ErrUnavailable = errors.New("storage backend unavailable")
)

// Backend is a durable home for one gallery.
type Backend interface {
	// Name identifies the backend in logs and the status bar.
	Name() string
	// Load returns the stored snapshot, or an empty one if nothing was saved.
	Load(ctx context.Context) (gallery.Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap gallery.Snapshot) error
	// Clear removes every item and the gallery metadata. Preferences stay.
	Clear(ctx context.Context) error
	LoadPrefs(ctx context.Context) (gallery.Preferences, error)
	SavePrefs(ctx context.Context, prefs gallery.Preferences) error
	Close() error
}

// ItemWriter is implemented by backends that store each item as its own
// record. Callers holding one can write only what changed instead of the
// whole snapshot.
type ItemWriter interface {
	PutItem(ctx context.Context, it gallery.Item) error
	DeleteItem(ctx context.Context, id string) error
	SaveMeta(ctx context.Context, meta gallery.Meta) error
	// SavePositions records the list position of every item, so items
	// with equal order load back in the same relative order.
	SavePositions(ctx context.Context, ids []string) error
}

// ItemIDs returns the ids of items in list order.
func ItemIDs(items []gallery.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// arrange restores the list order recorded in ids. Items missing from ids
// follow the recorded ones in their current relative order.
func arrange(items []gallery.Item, ids []string) {
	if len(ids) == 0 {
		return
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	rank := func(it gallery.Item) int {
		if p, ok := pos[it.ID]; ok {
			return p
		}
		return len(ids)
	}
	slices.SortStableFunc(items, func(a, b gallery.Item) int {
		return cmp.Compare(rank(a), rank(b))
	})
}

// Options configures Open.
type Options struct {
	Dir         string
	Kind        string
	Fallback    string
	BlobQuota   int64
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// Open opens the configured backend. If it is unavailable and a fallback kind
// is set, the fallback is opened instead and the switch is logged.
func Open(opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		opts.Dir = dir
	}
	if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", opts.Dir, err)
	}

	b, err := openKind(opts.Kind, opts, logger)
	if err == nil {
		logger.Info("storage backend opened", "backend", b.Name(), "dir", opts.Dir)
		return b, nil
	}
	if opts.Fallback == "" || opts.Fallback == opts.Kind {
		return nil, err
	}
	logger.Warn("storage backend unavailable, falling back",
		"backend", opts.Kind, "fallback", opts.Fallback, "error", err)
	fb, ferr := openKind(opts.Fallback, opts, logger)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return fb, nil
}

func openKind(kind string, opts Options, logger *slog.Logger) (Backend, error) {
	switch kind {
	case KindBolt, "":
		return OpenBolt(filepath.Join(opts.Dir, boltFileName), opts.OpenTimeout, logger)
	case KindSQLite:
		return OpenSQLite(filepath.Join(opts.Dir, sqliteFileName), logger)
	case KindBlob:
		return OpenBlob(opts.Dir, opts.BlobQuota)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// DefaultDir is the per-user data directory.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(configDir, "fygallery"), nil
}
