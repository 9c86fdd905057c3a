package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fygallery/internal/gallery"
)

const (
	blobFileName  = "gallery.json"
	prefsFileName = "prefs.json"

	// DefaultBlobQuota mirrors the per-origin limit of browser key-value storage.
	DefaultBlobQuota = 5 * 1024 * 1024
)

// blobSnapshot is the on-disk shape of the blob backend.
type blobSnapshot struct {
	Version int               `json:"v"`
	Session string            `json:"session,omitempty"`
	Title   string            `json:"title"`
	Items   []json.RawMessage `json:"items"`
}

// BlobBackend stores the whole gallery, images included, as one JSON file.
// Writes larger than the quota fail with ErrQuotaExceeded and leave the
// previous file in place.
type BlobBackend struct {
	dir   string
	quota int64
}

// OpenBlob prepares a blob backend rooted at dir. A non-positive quota uses
// DefaultBlobQuota.
func OpenBlob(dir string, quota int64) (*BlobBackend, error) {
	if quota <= 0 {
		quota = DefaultBlobQuota
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create blob directory %s: %v", ErrUnavailable, dir, err)
	}
	return &BlobBackend{dir: dir, quota: quota}, nil
}

// Name implements Backend.
func (b *BlobBackend) Name() string { return KindBlob }

// Close implements Backend.
func (b *BlobBackend) Close() error { return nil }

// Load reads the snapshot file. A missing file is an empty gallery; a file
// that does not parse is an error the caller is expected to absorb.
func (b *BlobBackend) Load(ctx context.Context) (gallery.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, blobFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return gallery.Snapshot{}, nil
	}
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("failed to read gallery blob: %w", err)
	}
	var stored blobSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return gallery.Snapshot{}, fmt.Errorf("failed to parse gallery blob: %w", err)
	}
	snap := gallery.Snapshot{Meta: gallery.Meta{Title: stored.Title, Session: stored.Session}}
	for i, raw := range stored.Items {
		var r gallery.RawItem
		if err := json.Unmarshal(raw, &r); err != nil {
			return gallery.Snapshot{}, fmt.Errorf("failed to parse gallery blob item %d: %w", i, err)
		}
		snap.Items = append(snap.Items, gallery.Upgrade(r))
	}
	gallery.SortByOrder(snap.Items)
	return snap, nil
}

// Save writes the full snapshot if it fits the quota.
func (b *BlobBackend) Save(ctx context.Context, snap gallery.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := blobSnapshot{
		Version: gallery.SchemaVersion,
		Session: snap.Meta.Session,
		Title:   snap.Meta.Title,
		Items:   make([]json.RawMessage, 0, len(snap.Items)),
	}
	for _, it := range snap.Items {
		raw, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
		}
		stored.Items = append(stored.Items, raw)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode gallery blob: %w", err)
	}
	if int64(len(data)) > b.quota {
		return fmt.Errorf("%w: gallery needs %d bytes, quota is %d", ErrQuotaExceeded, len(data), b.quota)
	}
	return writeFileAtomic(filepath.Join(b.dir, blobFileName), data)
}

// Clear removes the snapshot file.
func (b *BlobBackend) Clear(ctx context.Context) error {
	err := os.Remove(filepath.Join(b.dir, blobFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove gallery blob: %w", err)
	}
	return nil
}

// LoadPrefs reads the preferences file, falling back to defaults.
func (b *BlobBackend) LoadPrefs(ctx context.Context) (gallery.Preferences, error) {
	prefs := gallery.DefaultPreferences()
	data, err := os.ReadFile(filepath.Join(b.dir, prefsFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return gallery.DefaultPreferences(), fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs.Normalize(), nil
}

// SavePrefs writes the preferences file.
func (b *BlobBackend) SavePrefs(ctx context.Context, prefs gallery.Preferences) error {
	data, err := json.Marshal(prefs.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return writeFileAtomic(filepath.Join(b.dir, prefsFileName), data)
}

// writeFileAtomic replaces path with data via a rename so a crash never
// leaves a half-written snapshot.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

var _ Backend = (*BlobBackend)(nil)
