package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fygallery/internal/gallery"

	bolt "go.etcd.io/bbolt"
)

const (
	boltFileName = "fygallery.db"
	ItemsBucket  = "Items" // item id -> item JSON
	MetaBucket   = "Meta"  // "title", "session", "schema", "positions" -> value
	PrefsBucket  = "Prefs" // "prefs" -> preferences JSON

	metaTitle     = "title"
	metaSession   = "session"
	metaSchema    = "schema"
	metaPositions = "positions"
	prefsKey      = "prefs"
)

// BoltBackend keeps one record per item in a bbolt file.
type BoltBackend struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBolt opens or creates the database at path. timeout bounds the wait for
// the file lock; a locked file is reported as ErrUnavailable.
func OpenBolt(path string, timeout time.Duration, logger *slog.Logger) (*BoltBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt database %s: %v", ErrUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{ItemsBucket, MetaBucket, PrefsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return tx.Bucket([]byte(MetaBucket)).Put([]byte(metaSchema), []byte(strconv.Itoa(gallery.SchemaVersion)))
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltBackend{db: db, logger: logger}, nil
}

// Name implements Backend.
func (b *BoltBackend) Name() string { return KindBolt }

// Close closes the database file.
func (b *BoltBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Load reads every item record. Records that fail to decode are skipped and
// logged so one bad entry cannot hide the rest of the gallery. Items come
// back in their saved list position, then sorted by order.
func (b *BoltBackend) Load(ctx context.Context) (gallery.Snapshot, error) {
	var snap gallery.Snapshot
	var positions []string
	err := b.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		snap.Meta.Title = string(meta.Get([]byte(metaTitle)))
		snap.Meta.Session = string(meta.Get([]byte(metaSession)))
		if data := meta.Get([]byte(metaPositions)); data != nil {
			if err := json.Unmarshal(data, &positions); err != nil {
				b.logger.Warn("ignoring undecodable item positions", "error", err)
				positions = nil
			}
		}

		return tx.Bucket([]byte(ItemsBucket)).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var raw gallery.RawItem
			if err := json.Unmarshal(v, &raw); err != nil {
				b.logger.Warn("skipping undecodable item record", "id", string(k), "error", err)
				return nil
			}
			it := gallery.Upgrade(raw)
			if it.ID == "" {
				it.ID = string(k)
			}
			snap.Items = append(snap.Items, it)
			return nil
		})
	})
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("failed to load gallery from bolt: %w", err)
	}
	arrange(snap.Items, positions)
	gallery.SortByOrder(snap.Items)
	return snap, nil
}

// Save writes the metadata, then each item in its own transaction, then
// drops records for items no longer in the snapshot. A failed item does not
// stop the others; all failures are returned together.
func (b *BoltBackend) Save(ctx context.Context, snap gallery.Snapshot) error {
	var errs []error
	if err := b.SaveMeta(ctx, snap.Meta); err != nil {
		errs = append(errs, err)
	}
	keep := make(map[string]bool, len(snap.Items))
	for _, it := range snap.Items {
		keep[it.ID] = true
		if err := b.PutItem(ctx, it); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.SavePositions(ctx, ItemIDs(snap.Items)); err != nil {
		errs = append(errs, err)
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ItemsBucket))
		var stale [][]byte
		if err := bucket.ForEach(func(k, _ []byte) error {
			if !keep[string(k)] {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete stale item %s: %w", string(k), err)
			}
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PutItem writes one item record.
func (b *BoltBackend) PutItem(ctx context.Context, it gallery.Item) error {
	if it.ID == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(ItemsBucket)).Put([]byte(it.ID), data); err != nil {
			return fmt.Errorf("failed to put item %s: %w", it.ID, err)
		}
		return nil
	})
}

// DeleteItem removes one item record. Deleting a missing id is not an error.
func (b *BoltBackend) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(ItemsBucket)).Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete item %s: %w", id, err)
		}
		return nil
	})
}

// SaveMeta writes the gallery title and session label.
func (b *BoltBackend) SaveMeta(ctx context.Context, meta gallery.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(MetaBucket))
		if err := bucket.Put([]byte(metaTitle), []byte(meta.Title)); err != nil {
			return fmt.Errorf("failed to put gallery title: %w", err)
		}
		if err := bucket.Put([]byte(metaSession), []byte(meta.Session)); err != nil {
			return fmt.Errorf("failed to put gallery session: %w", err)
		}
		return nil
	})
}

// SavePositions stores the item ids in list order.
func (b *BoltBackend) SavePositions(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode item positions: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(MetaBucket)).Put([]byte(metaPositions), data); err != nil {
			return fmt.Errorf("failed to put item positions: %w", err)
		}
		return nil
	})
}

// Clear empties the items bucket and the gallery metadata.
func (b *BoltBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(ItemsBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop bucket %s: %w", ItemsBucket, err)
		}
		if _, err := tx.CreateBucket([]byte(ItemsBucket)); err != nil {
			return fmt.Errorf("failed to recreate bucket %s: %w", ItemsBucket, err)
		}
		meta := tx.Bucket([]byte(MetaBucket))
		for _, k := range []string{metaTitle, metaSession, metaPositions} {
			if err := meta.Delete([]byte(k)); err != nil {
				return fmt.Errorf("failed to delete meta key %s: %w", k, err)
			}
		}
		return nil
	})
}

// LoadPrefs returns the stored preferences or the defaults.
func (b *BoltBackend) LoadPrefs(ctx context.Context) (gallery.Preferences, error) {
	prefs := gallery.DefaultPreferences()
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(PrefsBucket)).Get([]byte(prefsKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &prefs); err != nil {
			return fmt.Errorf("failed to decode preferences: %w", err)
		}
		return nil
	})
	if err != nil {
		return gallery.DefaultPreferences(), err
	}
	return prefs.Normalize(), nil
}

// SavePrefs stores the preferences record.
func (b *BoltBackend) SavePrefs(ctx context.Context, prefs gallery.Preferences) error {
	data, err := json.Marshal(prefs.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PrefsBucket)).Put([]byte(prefsKey), data)
	})
}

var (
	_ Backend    = (*BoltBackend)(nil)
	_ ItemWriter = (*BoltBackend)(nil)
)
