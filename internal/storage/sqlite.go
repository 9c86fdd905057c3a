package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fygallery/internal/gallery"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteFileName = "fygallery.sqlite"

// SQLiteBackend keeps one row per item, indexed by order.
type SQLiteBackend struct {
	conn   *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database: %v", ErrUnavailable, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	b := &SQLiteBackend{conn: conn, logger: logger}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to migrate sqlite database: %v", ErrUnavailable, err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id   TEXT PRIMARY KEY,
		ord  INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_ord ON items(ord);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := b.conn.Exec(schema); err != nil {
		return err
	}
	_, err := b.conn.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		metaSchema, fmt.Sprint(gallery.SchemaVersion))
	return err
}

// Name implements Backend.
func (b *SQLiteBackend) Name() string { return KindSQLite }

// Close closes the connection.
func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

// Load reads all items in their saved list position, then sorts them by
// order. Undecodable rows are skipped and logged.
func (b *SQLiteBackend) Load(ctx context.Context) (gallery.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var snap gallery.Snapshot
	var positions []string
	rows, err := b.conn.QueryContext(ctx, `SELECT key, value FROM meta WHERE key IN (?, ?, ?)`, metaTitle, metaSession, metaPositions)
	if err != nil {
		return snap, fmt.Errorf("failed to query gallery meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return snap, fmt.Errorf("failed to scan gallery meta: %w", err)
		}
		switch k {
		case metaTitle:
			snap.Meta.Title = v
		case metaSession:
			snap.Meta.Session = v
		case metaPositions:
			if err := json.Unmarshal([]byte(v), &positions); err != nil {
				b.logger.Warn("ignoring undecodable item positions", "error", err)
				positions = nil
			}
		}
	}
	rows.Close()

	rows, err = b.conn.QueryContext(ctx, `SELECT id, body FROM items ORDER BY ord ASC`)
	if err != nil {
		return gallery.Snapshot{}, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return gallery.Snapshot{}, fmt.Errorf("failed to scan item: %w", err)
		}
		var raw gallery.RawItem
		if err := json.Unmarshal([]byte(body), &raw); err != nil {
			b.logger.Warn("skipping undecodable item row", "id", id, "error", err)
			continue
		}
		it := gallery.Upgrade(raw)
		if it.ID == "" {
			it.ID = id
		}
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return gallery.Snapshot{}, fmt.Errorf("failed to read items: %w", err)
	}
	arrange(snap.Items, positions)
	gallery.SortByOrder(snap.Items)
	return snap, nil
}

// Save writes meta and every item as separate statements, then removes rows
// for items that are gone. Failures are collected rather than aborting.
func (b *SQLiteBackend) Save(ctx context.Context, snap gallery.Snapshot) error {
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

	stale, err := b.ids(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, id := range stale {
		if keep[id] {
			continue
		}
		if err := b.DeleteItem(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *SQLiteBackend) ids(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows, err := b.conn.QueryContext(ctx, `SELECT id FROM items`)
	if err != nil {
		return nil, fmt.Errorf("failed to list item ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutItem upserts one item row.
func (b *SQLiteBackend) PutItem(ctx context.Context, it gallery.Item) error {
	if it.ID == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	body, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err = b.conn.ExecContext(ctx, `
		INSERT INTO items (id, ord, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ord = excluded.ord, body = excluded.body
	`, it.ID, it.Order, string(body))
	if err != nil {
		return fmt.Errorf("failed to put item %s: %w", it.ID, err)
	}
	return nil
}

// DeleteItem removes one item row.
func (b *SQLiteBackend) DeleteItem(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// SaveMeta writes the gallery title and session label.
func (b *SQLiteBackend) SaveMeta(ctx context.Context, meta gallery.Meta) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?), (?, ?)`,
		metaTitle, meta.Title, metaSession, meta.Session)
	if err != nil {
		return fmt.Errorf("failed to save gallery meta: %w", err)
	}
	return nil
}

// SavePositions stores the item ids in list order.
func (b *SQLiteBackend) SavePositions(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode item positions: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.conn.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaPositions, string(data)); err != nil {
		return fmt.Errorf("failed to save item positions: %w", err)
	}
	return nil
}

// Clear deletes all items and the gallery metadata.
func (b *SQLiteBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meta WHERE key IN (?, ?, ?)`, metaTitle, metaSession, metaPositions); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear meta: %w", err)
	}
	return tx.Commit()
}

// LoadPrefs returns the stored preferences or the defaults.
func (b *SQLiteBackend) LoadPrefs(ctx context.Context) (gallery.Preferences, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	prefs := gallery.DefaultPreferences()
	var value string
	err := b.conn.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, prefsKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(value), &prefs); err != nil {
		return gallery.DefaultPreferences(), fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs.Normalize(), nil
}

// SavePrefs stores the preferences record.
func (b *SQLiteBackend) SavePrefs(ctx context.Context, prefs gallery.Preferences) error {
	data, err := json.Marshal(prefs.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.conn.ExecContext(ctx, `INSERT OR REPLACE INTO prefs (key, value) VALUES (?, ?)`, prefsKey, string(data)); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

var (
	_ Backend    = (*SQLiteBackend)(nil)
	_ ItemWriter = (*SQLiteBackend)(nil)
)
