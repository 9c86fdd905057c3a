package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fygallery/internal/gallery"
	"fygallery/internal/status"
	"fygallery/internal/storage"
	"fygallery/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory storage.Backend that counts writes.
type memBackend struct {
	mu      sync.Mutex
	snap    gallery.Snapshot
	prefs   gallery.Preferences
	saves   int
	clears  int
	loadErr error
	saveErr error
}

func (m *memBackend) Name() string { return "mem" }
func (m *memBackend) Close() error { return nil }

func (m *memBackend) Load(context.Context) (gallery.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return gallery.Snapshot{}, m.loadErr
	}
	return gallery.Snapshot{Meta: m.snap.Meta, Items: gallery.CloneItems(m.snap.Items)}, nil
}

func (m *memBackend) Save(_ context.Context, snap gallery.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = gallery.Snapshot{Meta: snap.Meta, Items: gallery.CloneItems(snap.Items)}
	return nil
}

func (m *memBackend) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.snap = gallery.Snapshot{}
	return nil
}

func (m *memBackend) LoadPrefs(context.Context) (gallery.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == (gallery.Preferences{}) {
		return gallery.DefaultPreferences(), nil
	}
	return m.prefs, nil
}

func (m *memBackend) SavePrefs(_ context.Context, p gallery.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}

func (m *memBackend) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestStore(t *testing.T, b storage.Backend, debounce time.Duration) *Store {
	t.Helper()
	s := New(Options{Backend: b, Debounce: debounce, Status: status.NewLog(50)})
	s.Load(context.Background())
	return s
}

func photo(title string, tags ...string) gallery.Item {
	return gallery.Item{Title: title, Tags: tags, Full: "data:image/jpeg;base64,RlVMTA==", Thumb: "data:image/jpeg;base64,VEhVTUI="}
}

func TestAddThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{storage.KindBolt, storage.KindSQLite, storage.KindBlob} {
		t.Run(kind, func(t *testing.T) {
			dir := t.TempDir()
			b, err := storage.Open(storage.Options{Dir: dir, Kind: kind, OpenTimeout: time.Second})
			require.NoError(t, err)
			s := newTestStore(t, b, time.Hour)

			added := s.Add(photo("one", "a"), photo("two", "b", "c"))
			require.Len(t, added, 2)
			assert.NotEmpty(t, added[0].ID)
			assert.NotEqual(t, added[0].ID, added[1].ID)
			assert.Equal(t, 1, added[0].Order)
			assert.Equal(t, 2, added[1].Order)
			s.SetMeta(gallery.Meta{Title: "Trip", Session: "day1"})
			require.NoError(t, s.Close(ctx))

			b2, err := storage.Open(storage.Options{Dir: dir, Kind: kind, OpenTimeout: time.Second})
			require.NoError(t, err)
			s2 := newTestStore(t, b2, time.Hour)
			defer s2.Close(ctx)

			items := s2.Items()
			require.Len(t, items, 2)
			for i := range added {
				assert.Equal(t, added[i].ID, items[i].ID)
				assert.Equal(t, added[i].Title, items[i].Title)
				assert.Equal(t, added[i].Tags, items[i].Tags)
				assert.Equal(t, added[i].Full, items[i].Full)
				assert.Equal(t, added[i].Thumb, items[i].Thumb)
			}
			assert.Equal(t, gallery.Meta{Title: "Trip", Session: "day1"}, s2.Meta())
		})
	}
}

func TestDebounceCoalescesWrites(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b, time.Hour)
	it := s.Add(photo("x"))[0]
	for _, title := range []string{"h", "he", "hel", "hell", "hello"} {
		_, err := s.Update(it.ID, func(i *gallery.Item) { i.Title = title })
		require.NoError(t, err)
	}
	assert.Equal(t, 0, b.saveCount())
	assert.True(t, s.Dirty())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, b.saveCount())
	assert.False(t, s.Dirty())
	assert.Equal(t, "hello", b.snap.Items[0].Title)

	// Nothing pending: no write.
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, b.saveCount())
}

func TestDebounceTimerWrites(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b, 10*time.Millisecond)
	s.Add(photo("x"))
	s.Add(photo("y"))
	assert.Eventually(t, func() bool { return b.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return b.saveCount() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSaveFailureKeepsMemoryAndReports(t *testing.T) {
	b := &memBackend{saveErr: storage.ErrQuotaExceeded}
	log := status.NewLog(10)
	s := New(Options{Backend: b, Debounce: time.Hour, Status: log})
	s.Add(photo("big"))

	err := s.Flush(context.Background())
	require.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Dirty(), "the next write retries the whole gallery")
	latest, ok := log.Latest()
	require.True(t, ok)
	assert.Equal(t, status.Error, latest.Level)
	assert.Contains(t, latest.Message, "Save failed")

	b.mu.Lock()
	b.saveErr = nil
	b.mu.Unlock()
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, b.snap.Items, 1)
}

func TestLoadFailsSoft(t *testing.T) {
	b := &memBackend{loadErr: errors.New("corrupt")}
	s := newTestStore(t, b, time.Hour)
	assert.Equal(t, 0, s.Len())
	latest, _ := s.Status().Latest()
	assert.Contains(t, latest.Message, "Loaded 0 items")
	entries := s.Status().Entries()
	assert.Equal(t, status.Error, entries[0].Level)
}

func TestLateIntakeResultIsDropped(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	it := s.Add(photo("uploading"))[0]
	assert.Equal(t, 1, s.Remove(it.ID))

	err := s.SetImages(it.ID, "data:image/jpeg;base64,TEFURQ==", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMoveUpAndDown(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	added := s.Add(photo("a"), photo("b"), photo("c"))

	require.NoError(t, s.MoveUp(added[0].ID))
	got, _ := s.Get(added[0].ID)
	assert.Equal(t, 0, got.Order)
	require.NoError(t, s.MoveUp(added[0].ID))
	got, _ = s.Get(added[0].ID)
	assert.Equal(t, 0, got.Order, "order never goes below zero")

	require.NoError(t, s.MoveDown(added[2].ID))
	require.NoError(t, s.MoveDown(added[2].ID))
	got, _ = s.Get(added[2].ID)
	assert.Equal(t, 5, got.Order)

	// b (2) moves up into a tie with nothing; c stays last.
	require.NoError(t, s.MoveUp(added[1].ID))
	view := s.View()
	assert.Equal(t, []string{"a", "b", "c"}, titles(view))

	assert.ErrorIs(t, s.MoveUp("missing"), ErrNotFound)
}

func TestToggleFavAndFilterView(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	added := s.Add(photo("one", "a"), photo("two", "b"), photo("three", "a", "b"))

	s.SetFilter(gallery.Filter{Tag: "a"})
	assert.Equal(t, []string{"one", "three"}, titles(s.View()))
	s.SetFilter(gallery.Filter{})
	s.SetFilter(gallery.Filter{Tag: "a"})
	assert.Equal(t, []string{"one", "three"}, titles(s.View()))

	fav, err := s.ToggleFav(added[2].ID)
	require.NoError(t, err)
	assert.True(t, fav)
	s.SetFilter(gallery.Filter{FavOnly: true})
	assert.Equal(t, []string{"three"}, titles(s.View()))

	assert.Equal(t, []gallery.TagWithCount{{Name: "a", Count: 2}, {Name: "b", Count: 2}}, s.Tags())
}

func TestSelectionAndExport(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	added := s.Add(photo("one"), photo("two"), photo("three"))

	_, _, err := s.Export(true)
	assert.ErrorIs(t, err, ErrNothingToExport)

	s.Select(added[2].ID, added[0].ID, "unknown")
	assert.Equal(t, 2, len(s.Selected()))
	assert.False(t, s.ToggleSelected(added[0].ID))
	assert.True(t, s.ToggleSelected(added[1].ID))

	_, items, err := s.Export(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, titles(items))

	s.Remove(added[1].ID)
	assert.Equal(t, []string{added[2].ID}, s.Selected())

	s.SelectAll()
	assert.Len(t, s.Selected(), 2)
	s.ClearSelection()
	assert.Empty(t, s.Selected())

	s.SetMeta(gallery.Meta{Title: "T", Session: "S"})
	meta, items, err := s.Export(false)
	require.NoError(t, err)
	assert.Equal(t, "T", meta.Title)
	assert.Len(t, items, 2)

	parts, err := s.ExportParts(false, time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "S_2025-01-02_03-04.json", parts[0].Name)
}

func TestImportItemsWithoutIDs(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	s.Add(photo("existing"))
	s.MoveDown(s.Items()[0].ID) // order 2

	doc := []byte(`{"title":"x","items":[{"title":"p","src":"data:image/png;base64,AA=="},{"title":"q","src":"data:image/png;base64,AQ=="}]}`)
	added, err := s.ImportData(context.Background(), doc, transfer.Append)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotEmpty(t, added[0].ID)
	assert.NotEmpty(t, added[1].ID)
	assert.NotEqual(t, added[0].ID, added[1].ID)
	assert.Equal(t, 3, added[0].Order)
	assert.Equal(t, 4, added[1].Order)
	assert.Equal(t, "data:image/png;base64,AA==", added[0].Full)
	assert.Equal(t, "", s.Meta().Title, "append keeps the gallery title")
}

func TestAppendImportTwiceDuplicatesUnderNewIDs(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	doc := []byte(`{"items":[{"id":"same","title":"p","src":"data:,x"}]}`)
	_, err := s.ImportData(context.Background(), doc, transfer.Append)
	require.NoError(t, err)
	again, err := s.ImportData(context.Background(), doc, transfer.Append)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.NotEqual(t, "same", again[0].ID)
}

func TestReplaceImportClearsFirst(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b, time.Hour)
	old := s.Add(photo("old"))
	s.Select(old[0].ID)
	s.SetMeta(gallery.Meta{Title: "Before", Session: "keep"})
	require.NoError(t, s.Flush(context.Background()))

	var kinds []ChangeKind
	unsubscribe := s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })
	defer unsubscribe()

	doc := []byte(`{"title":"After","items":[{"id":"n1","order":7,"title":"new"}]}`)
	added, err := s.ImportData(context.Background(), doc, transfer.Replace)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "n1", added[0].ID)
	assert.Equal(t, 1, added[0].Order)

	assert.Equal(t, 1, b.clears)
	assert.Equal(t, []string{"new"}, titles(s.Items()))
	assert.Empty(t, s.Selected())
	assert.Equal(t, gallery.Meta{Title: "After", Session: "keep"}, s.Meta())
	assert.Equal(t, []string{"new"}, titles(b.snap.Items), "import is written immediately")
	assert.Contains(t, kinds, ChangeReset)
}

func TestImportParseErrorLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	s.Add(photo("keep"))
	for _, doc := range []string{`not json`, `{"title":"x"}`, `{"items":{}}`} {
		_, err := s.ImportData(context.Background(), []byte(doc), transfer.Replace)
		var perr *transfer.ParseError
		require.ErrorAs(t, err, &perr, doc)
	}
	assert.Equal(t, []string{"keep"}, titles(s.Items()))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t, &memBackend{}, time.Hour)
	a := photo("one", "x")
	a.Desc = "first"
	a.Fav = true
	src.Add(a, photo("two", "y", "z"))
	src.SetMeta(gallery.Meta{Title: "G", Session: "s"})

	parts, err := src.ExportParts(false, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	dst := newTestStore(t, &memBackend{}, time.Hour)
	_, err = dst.ImportData(context.Background(), parts[0].Data, transfer.Replace)
	require.NoError(t, err)

	want, got := src.Items(), dst.Items()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Desc, got[i].Desc)
		assert.Equal(t, want[i].Tags, got[i].Tags)
		assert.Equal(t, want[i].Fav, got[i].Fav)
		assert.Equal(t, want[i].Full, got[i].Full)
	}
	assert.Equal(t, src.Meta(), dst.Meta())
}

func TestItemWriterGetsOnlyChanges(t *testing.T) {
	ctx := context.Background()
	b, err := storage.OpenBolt(filepath.Join(t.TempDir(), "g.db"), time.Second, nil)
	require.NoError(t, err)
	s := newTestStore(t, b, time.Hour)
	defer s.Close(ctx)

	added := s.Add(photo("a"), photo("b"))
	require.NoError(t, s.Flush(ctx))
	s.Remove(added[0].ID)
	_, err = s.Update(added[1].ID, func(it *gallery.Item) { it.Desc = "edited" })
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "edited", snap.Items[0].Desc)
}

func TestTiedItemsKeepTheirPlaceAcrossReload(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{storage.KindBolt, storage.KindSQLite, storage.KindBlob} {
		t.Run(kind, func(t *testing.T) {
			dir := t.TempDir()
			b, err := storage.Open(storage.Options{Dir: dir, Kind: kind, OpenTimeout: time.Second})
			require.NoError(t, err)
			s := newTestStore(t, b, time.Hour)

			var batch []gallery.Item
			for i := 0; i < 10; i++ {
				batch = append(batch, photo(fmt.Sprintf("p%d", i)))
			}
			added := s.Add(batch...)
			require.NoError(t, s.Flush(ctx))
			// Every second item ties with the one before it.
			for i := 1; i < len(added); i += 2 {
				require.NoError(t, s.MoveUp(added[i].ID))
			}
			before := ids(s.View())
			require.NoError(t, s.Close(ctx))

			b2, err := storage.Open(storage.Options{Dir: dir, Kind: kind, OpenTimeout: time.Second})
			require.NoError(t, err)
			s2 := newTestStore(t, b2, time.Hour)
			defer s2.Close(ctx)
			assert.Equal(t, before, ids(s2.View()))
		})
	}
}

func TestResetAndClear(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b, 0)
	s.Add(photo("a"))
	s.SetMeta(gallery.Meta{Title: "T", Session: "S"})

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "T", s.Meta().Title)

	s.Add(photo("b"))
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, gallery.Meta{}, s.Meta())
	assert.Empty(t, b.snap.Items)
	assert.Equal(t, gallery.Meta{}, b.snap.Meta)
}

func TestPrefsAreSavedImmediately(t *testing.T) {
	b := &memBackend{}
	s := newTestStore(t, b, time.Hour)
	assert.Equal(t, gallery.DefaultPreferences(), s.Prefs())

	p, err := s.SetPrefs(context.Background(), gallery.Preferences{Labels: "weird", SlideMs: 100})
	require.NoError(t, err)
	assert.Equal(t, gallery.LabelsAuto, p.Labels)
	assert.Equal(t, 800, p.SlideMs)
	assert.Equal(t, p, b.prefs)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := newTestStore(t, &memBackend{}, time.Hour)
	var got []Change
	cancel := s.Subscribe(func(c Change) { got = append(got, c) })
	it := s.Add(photo("a"))[0]
	s.SetFilter(gallery.Filter{Query: "a"})
	cancel()
	s.Remove(it.ID)

	require.Len(t, got, 2)
	assert.Equal(t, ChangeItems, got[0].Kind)
	assert.Equal(t, []string{it.ID}, got[0].IDs)
	assert.Equal(t, ChangeFilter, got[1].Kind)
}

func titles(items []gallery.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
