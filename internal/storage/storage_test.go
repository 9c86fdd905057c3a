package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fygallery/internal/gallery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFactory struct {
	name string
	open func(t *testing.T, dir string) Backend
}

func factories() []backendFactory {
	return []backendFactory{
		{KindBolt, func(t *testing.T, dir string) Backend {
			b, err := OpenBolt(filepath.Join(dir, boltFileName), time.Second, nil)
			require.NoError(t, err)
			return b
		}},
		{KindSQLite, func(t *testing.T, dir string) Backend {
			b, err := OpenSQLite(filepath.Join(dir, sqliteFileName), nil)
			require.NoError(t, err)
			return b
		}},
		{KindBlob, func(t *testing.T, dir string) Backend {
			b, err := OpenBlob(dir, 0)
			require.NoError(t, err)
			return b
		}},
	}
}

func sampleSnapshot() gallery.Snapshot {
	return gallery.Snapshot{
		Meta: gallery.Meta{Title: "Holiday", Session: "2025-08"},
		Items: []gallery.Item{
			{ID: "b", Order: 2, Title: "Second", Desc: "d2", Tags: []string{"x"}, Full: "data:image/jpeg;base64,Qg==", Thumb: "data:image/jpeg;base64,Yg=="},
			{ID: "a", Order: 1, Title: "First", Tags: []string{"x", "y"}, Fav: true, Full: "data:image/jpeg;base64,QQ==", Thumb: "data:image/jpeg;base64,YQ=="},
		},
	}
}

func TestBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			dir := t.TempDir()
			b := f.open(t, dir)
			defer b.Close()
			assert.Equal(t, f.name, b.Name())

			empty, err := b.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty.Items)

			snap := sampleSnapshot()
			require.NoError(t, b.Save(ctx, snap))

			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, snap.Meta, loaded.Meta)
			require.Len(t, loaded.Items, 2)
			assert.Equal(t, snap.Items[1], loaded.Items[0]) // sorted by order
			assert.Equal(t, snap.Items[0], loaded.Items[1])

			// Saving a smaller snapshot drops the missing item.
			snap.Items = snap.Items[:1]
			require.NoError(t, b.Save(ctx, snap))
			loaded, err = b.Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded.Items, 1)
			assert.Equal(t, "b", loaded.Items[0].ID)
		})
	}
}

func TestBackendKeepsListPositionOfTies(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			dir := t.TempDir()
			b := f.open(t, dir)

			// Ids sort the other way round from the list.
			snap := gallery.Snapshot{Items: []gallery.Item{
				{ID: "z", Order: 1, Tags: []string{}},
				{ID: "m", Order: 0, Tags: []string{}},
				{ID: "a", Order: 1, Tags: []string{}},
			}}
			require.NoError(t, b.Save(ctx, snap))
			require.NoError(t, b.Close())

			b = f.open(t, dir)
			defer b.Close()
			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"m", "z", "a"}, ItemIDs(loaded.Items))
		})
	}
}

func TestBackendClearKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t, t.TempDir())
			defer b.Close()

			prefs, err := b.LoadPrefs(ctx)
			require.NoError(t, err)
			assert.Equal(t, gallery.DefaultPreferences(), prefs)

			want := gallery.Preferences{Labels: gallery.LabelsOn, CardMin: 180, Slideshow: true, SlideMs: 4000}
			require.NoError(t, b.SavePrefs(ctx, want))
			require.NoError(t, b.Save(ctx, sampleSnapshot()))
			require.NoError(t, b.Clear(ctx))

			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, loaded.Items)
			assert.Equal(t, gallery.Meta{}, loaded.Meta)

			prefs, err = b.LoadPrefs(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, prefs)
		})
	}
}

func TestItemWriterBackends(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t, t.TempDir())
			defer b.Close()
			w, ok := b.(ItemWriter)
			if f.name == KindBlob {
				assert.False(t, ok, "blob backend writes whole snapshots only")
				return
			}
			require.True(t, ok)

			it := gallery.Item{ID: "only", Order: 3, Title: "t", Tags: []string{}, Full: "F", Thumb: "T"}
			require.NoError(t, w.PutItem(ctx, it))
			require.NoError(t, w.SaveMeta(ctx, gallery.Meta{Title: "M"}))

			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded.Items, 1)
			assert.Equal(t, it, loaded.Items[0])
			assert.Equal(t, "M", loaded.Meta.Title)

			it.Title = "changed"
			require.NoError(t, w.PutItem(ctx, it))
			loaded, err = b.Load(ctx)
			require.NoError(t, err)
			require.Len(t, loaded.Items, 1)
			assert.Equal(t, "changed", loaded.Items[0].Title)

			second := gallery.Item{ID: "aa", Order: 3, Tags: []string{}}
			require.NoError(t, w.PutItem(ctx, second))
			require.NoError(t, w.SavePositions(ctx, []string{"only", "aa"}))
			loaded, err = b.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"only", "aa"}, ItemIDs(loaded.Items))
			require.NoError(t, w.SavePositions(ctx, []string{"aa", "only"}))
			loaded, err = b.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"aa", "only"}, ItemIDs(loaded.Items))
			require.NoError(t, w.DeleteItem(ctx, "aa"))

			require.NoError(t, w.DeleteItem(ctx, "only"))
			require.NoError(t, w.DeleteItem(ctx, "never-existed"))
			loaded, err = b.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, loaded.Items)

			assert.Error(t, w.PutItem(ctx, gallery.Item{}))
		})
	}
}

func TestBlobQuota(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := OpenBlob(dir, 2048)
	require.NoError(t, err)

	small := sampleSnapshot()
	require.NoError(t, b.Save(ctx, small))

	big := sampleSnapshot()
	big.Items[0].Full = "data:image/jpeg;base64," + strings.Repeat("A", 4096)
	err = b.Save(ctx, big)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// The previous snapshot is still there.
	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)
	assert.Equal(t, small.Items[0].Full, loaded.Items[1].Full)
}

func TestBlobCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, blobFileName), []byte("{broken"), 0600))
	b, err := OpenBlob(dir, 0)
	require.NoError(t, err)
	_, err = b.Load(context.Background())
	assert.Error(t, err)
}

func TestBlobLoadsLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"title":"Old","items":[{"id":"z","order":1,"title":"x","tags":["t"],"src":"data:image/png;base64,AA=="}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, blobFileName), []byte(legacy), 0600))
	b, err := OpenBlob(dir, 0)
	require.NoError(t, err)

	snap, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "data:image/png;base64,AA==", snap.Items[0].Full)
	assert.Equal(t, "data:image/png;base64,AA==", snap.Items[0].Thumb)
}

func TestOpenFallsBackWhenBoltIsLocked(t *testing.T) {
	dir := t.TempDir()
	holder, err := OpenBolt(filepath.Join(dir, boltFileName), time.Second, nil)
	require.NoError(t, err)
	defer holder.Close()

	b, err := Open(Options{
		Dir:         dir,
		Kind:        KindBolt,
		Fallback:    KindBlob,
		OpenTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, KindBlob, b.Name())
}

func TestOpenWithoutFallbackReportsUnavailable(t *testing.T) {
	dir := t.TempDir()
	holder, err := OpenBolt(filepath.Join(dir, boltFileName), time.Second, nil)
	require.NoError(t, err)
	defer holder.Close()

	_, err = Open(Options{Dir: dir, Kind: KindBolt, OpenTimeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(Options{Dir: t.TempDir(), Kind: "floppy"})
	assert.Error(t, err)
}
