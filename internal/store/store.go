// Package store owns the gallery while the application runs: the item
// collection, gallery metadata, preferences, the selection set and the active
// filter. Every mutation goes through a Store method, is persisted through a
// storage.Backend after a short debounce, and is announced to subscribers.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"fygallery/internal/gallery"
	"fygallery/internal/status"
	"fygallery/internal/storage"
)

// DefaultDebounce is how long rapid edits are coalesced before a write.
const DefaultDebounce = 250 * time.Millisecond

var (
	// ErrNotFound is returned for ids that are not in the collection. Intake
	// results for items removed mid-upload end here and are dropped.
	ErrNotFound = errors.New("item not found")
	// ErrNothingToExport is returned when an export would be empty.
	ErrNothingToExport = errors.New("no items to export")
)

// Options configures a Store.
type Options struct {
	Backend  storage.Backend
	Debounce time.Duration // 0 writes synchronously after every mutation
	Status   *status.Log
	Logger   *slog.Logger
}

// Store is safe for concurrent use. Intake workers report results from their
// own goroutines while the UI thread edits.
type Store struct {
	backend  storage.Backend
	writer   storage.ItemWriter
	debounce time.Duration
	status   *status.Log
	logger   *slog.Logger

	mu       sync.Mutex
	items    []gallery.Item
	meta     gallery.Meta
	prefs    gallery.Preferences
	selected map[string]struct{}
	filter   gallery.Filter
	pending  pending
	timer    *time.Timer

	flushMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New creates an empty store over the backend. Call Load to read the
// persisted gallery.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Status == nil {
		opts.Status = status.NewLog(0)
	}
	s := &Store{
		backend:  opts.Backend,
		debounce: opts.Debounce,
		status:   opts.Status,
		logger:   opts.Logger,
		prefs:    gallery.DefaultPreferences(),
		selected: make(map[string]struct{}),
		subs:     make(map[int]func(Change)),
	}
	if w, ok := opts.Backend.(storage.ItemWriter); ok {
		s.writer = w
	}
	return s
}

// Status returns the log that receives save, import and export outcomes.
func (s *Store) Status() *status.Log { return s.status }

// BackendName names the backend in use.
func (s *Store) BackendName() string { return s.backend.Name() }

// Load replaces the in-memory state with the persisted gallery and
// preferences. It never fails: unreadable data leaves an empty gallery or
// default preferences and is reported to the status log.
func (s *Store) Load(ctx context.Context) {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load gallery, starting empty", "backend", s.backend.Name(), "error", err)
		s.status.Errorf("Could not read saved gallery: %v", err)
		snap = gallery.Snapshot{}
	}
	prefs, err := s.backend.LoadPrefs(ctx)
	if err != nil {
		s.logger.Warn("failed to load preferences, using defaults", "error", err)
		prefs = gallery.DefaultPreferences()
	}

	items := make([]gallery.Item, 0, len(snap.Items))
	repaired := false
	for _, it := range snap.Items {
		if it.ID == "" {
			it.ID = gallery.NewID()
			repaired = true
		}
		items = append(items, it.Clone())
	}
	gallery.SortByOrder(items)

	s.mu.Lock()
	s.items = items
	s.meta = snap.Meta
	s.prefs = prefs.Normalize()
	s.selected = make(map[string]struct{})
	s.filter = gallery.Filter{}
	s.pending = pending{}
	if repaired {
		s.pending.full = true
	}
	s.mu.Unlock()

	s.logger.Info("gallery loaded", "backend", s.backend.Name(), "items", len(items))
	s.status.Infof("Loaded %d items from %s", len(items), s.backend.Name())
	if repaired {
		s.schedule()
	}
	s.notify(Change{Kind: ChangeReset})
}

// Items returns every item in display order.
func (s *Store) Items() []gallery.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := gallery.CloneItems(s.items)
	gallery.SortByOrder(items)
	return items
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (gallery.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return gallery.Item{}, false
	}
	return s.items[i].Clone(), true
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it gallery.Item) bool { return it.ID == id })
}

// Add appends items after the current maximum order. Items without an id get
// a fresh one. The stored copies are returned.
func (s *Store) Add(items ...gallery.Item) []gallery.Item {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	added := s.appendLocked(items)
	s.mu.Unlock()

	s.schedule()
	s.notify(Change{Kind: ChangeItems, IDs: ids(added)})
	return added
}

// appendLocked assigns orders after the current maximum and appends. Items
// without an id, or whose id is already taken, get a fresh one, so importing
// the same document twice yields duplicates under new ids. The caller holds
// s.mu.
func (s *Store) appendLocked(items []gallery.Item) []gallery.Item {
	order := gallery.MaxOrder(s.items)
	taken := make(map[string]bool, len(s.items)+len(items))
	for _, it := range s.items {
		taken[it.ID] = true
	}
	added := make([]gallery.Item, 0, len(items))
	for _, it := range items {
		it = it.Clone()
		if it.ID == "" || taken[it.ID] {
			it.ID = gallery.NewID()
		}
		taken[it.ID] = true
		order++
		it.Order = order
		s.items = append(s.items, it)
		s.pending.put(it.ID)
		added = append(added, it.Clone())
	}
	return added
}

// Update applies fn to the stored item. The id cannot be changed.
func (s *Store) Update(id string, fn func(*gallery.Item)) (gallery.Item, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return gallery.Item{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	it := s.items[i].Clone()
	fn(&it)
	it.ID = id
	if it.Tags == nil {
		it.Tags = []string{}
	}
	s.items[i] = it
	s.pending.put(id)
	s.mu.Unlock()

	s.schedule()
	s.notify(Change{Kind: ChangeItems, IDs: []string{id}})
	return it.Clone(), nil
}

// SetImages stores new renditions for an item. It reports ErrNotFound when
// the item was removed while its images were being prepared.
func (s *Store) SetImages(id, full, thumb string) error {
	_, err := s.Update(id, func(it *gallery.Item) {
		it.Full = full
		it.Thumb = thumb
	})
	return err
}

// ToggleFav flips the favorite flag and returns the new value.
func (s *Store) ToggleFav(id string) (bool, error) {
	it, err := s.Update(id, func(it *gallery.Item) { it.Fav = !it.Fav })
	return it.Fav, err
}

// MoveUp lowers the item's order by one, never below zero. Orders are sort
// hints: ties are not renumbered and fall back to the previous relative
// position.
func (s *Store) MoveUp(id string) error {
	_, err := s.Update(id, func(it *gallery.Item) { it.Order = max(0, it.Order-1) })
	return err
}

// MoveDown raises the item's order by one.
func (s *Store) MoveDown(id string) error {
	_, err := s.Update(id, func(it *gallery.Item) { it.Order++ })
	return err
}

// Remove deletes items and drops them from the selection. It returns how
// many were present.
func (s *Store) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	removed := make([]string, 0, len(ids))
	s.items = slices.DeleteFunc(s.items, func(it gallery.Item) bool {
		if drop[it.ID] {
			removed = append(removed, it.ID)
			return true
		}
		return false
	})
	for _, id := range removed {
		delete(s.selected, id)
		s.pending.remove(id)
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}
	s.schedule()
	s.notify(Change{Kind: ChangeItems, IDs: removed})
	return len(removed)
}

// Clear removes every item but keeps the gallery title and session.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.selected = make(map[string]struct{})
	s.pending.all()
	s.mu.Unlock()

	s.schedule()
	s.notify(Change{Kind: ChangeReset})
}

// Reset starts a new, empty gallery: items, title and session are cleared.
// Preferences are untouched.
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	s.meta = gallery.Meta{}
	s.selected = make(map[string]struct{})
	s.filter = gallery.Filter{}
	s.pending.all()
	s.mu.Unlock()

	s.status.Infof("New gallery")
	s.schedule()
	s.notify(Change{Kind: ChangeReset})
}

// Meta returns the gallery title and session.
func (s *Store) Meta() gallery.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// SetMeta replaces the gallery title and session.
func (s *Store) SetMeta(meta gallery.Meta) {
	s.mu.Lock()
	if s.meta == meta {
		s.mu.Unlock()
		return
	}
	s.meta = meta
	s.pending.meta = true
	s.mu.Unlock()

	s.schedule()
	s.notify(Change{Kind: ChangeMeta})
}

// Prefs returns the current preferences.
func (s *Store) Prefs() gallery.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetPrefs normalizes and saves the preferences right away. Preferences are
// small and live apart from the gallery, so they skip the debounce.
func (s *Store) SetPrefs(ctx context.Context, p gallery.Preferences) (gallery.Preferences, error) {
	p = p.Normalize()
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()

	s.notify(Change{Kind: ChangePrefs})
	if err := s.backend.SavePrefs(ctx, p); err != nil {
		s.logger.Error("failed to save preferences", "error", err)
		s.status.Errorf("Preferences not saved: %v", err)
		return p, err
	}
	return p, nil
}

// Select adds ids to the selection. Unknown ids are ignored.
func (s *Store) Select(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		if s.indexOf(id) >= 0 {
			s.selected[id] = struct{}{}
		}
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, IDs: ids})
}

// Deselect removes ids from the selection.
func (s *Store) Deselect(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.selected, id)
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, IDs: ids})
}

// ToggleSelected flips one id's selection and returns whether it is now
// selected.
func (s *Store) ToggleSelected(id string) bool {
	s.mu.Lock()
	_, on := s.selected[id]
	if on {
		delete(s.selected, id)
	} else if s.indexOf(id) >= 0 {
		s.selected[id] = struct{}{}
	}
	_, now := s.selected[id]
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, IDs: []string{id}})
	return now
}

// SelectAll selects every item, filtered out or not.
func (s *Store) SelectAll() {
	s.mu.Lock()
	for _, it := range s.items {
		s.selected[it.ID] = struct{}{}
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection})
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	clear(s.selected)
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection})
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected ids, sorted.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.selected))
}

// Filter returns the active filter.
func (s *Store) Filter() gallery.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter replaces the active filter.
func (s *Store) SetFilter(f gallery.Filter) {
	s.mu.Lock()
	if s.filter == f {
		s.mu.Unlock()
		return
	}
	s.filter = f
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeFilter})
}

// View returns the items matching the active filter in display order. This
// is the list the grid renders and the viewer indexes into.
func (s *Store) View() []gallery.Item {
	s.mu.Lock()
	items := gallery.CloneItems(s.items)
	f := s.filter
	s.mu.Unlock()
	return gallery.Apply(items, f)
}

// Tags returns every tag in use with its item count.
func (s *Store) Tags() []gallery.TagWithCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gallery.TagCounts(s.items)
}

func ids(items []gallery.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
