package transfer

import (
	"encoding/json"
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

func makeItems(n, payload int) []gallery.Item {
	items := make([]gallery.Item, n)
	for i := range items {
		items[i] = gallery.Item{
			ID:    gallery.NewID(),
			Order: i + 1,
			Title: "photo",
			Tags:  []string{"t"},
			Full:  gallery.EncodeDataURI("image/jpeg", []byte(strings.Repeat("x", payload+i))),
		}
	}
	return items
}

func TestSplitSmallDocumentIsSinglePart(t *testing.T) {
	doc := NewDocument(gallery.Meta{Title: "Trip"}, makeItems(3, 100))
	parts, err := Split(doc, DefaultLimit)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	whole, err := Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, whole, parts[0])
}

func TestSplitCoversEveryItemOnce(t *testing.T) {
	const limit = 10_000
	items := makeItems(40, 900)
	doc := NewDocument(gallery.Meta{Title: "Big", Session: "s1"}, items)

	whole, err := Encode(doc)
	require.NoError(t, err)
	require.Greater(t, len(whole), limit)

	parts, err := Split(doc, limit)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(parts), 2)

	seen := make(map[string]int)
	var order []string
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), limit)
		imported, err := Parse(p)
		require.NoError(t, err)
		assert.Equal(t, "Big", imported.Meta.Title)
		assert.Equal(t, "s1", imported.Meta.Session)
		for _, it := range imported.Items {
			seen[it.ID]++
			order = append(order, it.ID)
		}
	}
	require.Len(t, seen, len(items))
	for i, it := range items {
		assert.Equal(t, 1, seen[it.ID])
		assert.Equal(t, it.ID, order[i])
	}
}

func TestSplitOversizedItemGetsOwnPart(t *testing.T) {
	items := makeItems(3, 50)
	items[1].Full = gallery.EncodeDataURI("image/jpeg", []byte(strings.Repeat("y", 5000)))
	parts, err := Split(NewDocument(gallery.Meta{}, items), 2000)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	mid, err := Parse(parts[1])
	require.NoError(t, err)
	require.Len(t, mid.Items, 1)
	assert.Equal(t, items[1].ID, mid.Items[0].ID)
}

func TestExportImportPreservesContent(t *testing.T) {
	items := []gallery.Item{
		{ID: "a", Order: 1, Title: "One", Desc: "first", Tags: []string{"x", "y"}, Fav: true, Full: "data:image/jpeg;base64,QUJD", Thumb: "data:image/jpeg;base64,QQ=="},
		{ID: "b", Order: 2, Title: "Two", Tags: []string{}, Full: "data:image/png;base64,REVG"},
	}
	data, err := Encode(NewDocument(gallery.Meta{Title: "G"}, items))
	require.NoError(t, err)

	imported, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, imported.Items, 2)
	for i, it := range imported.Items {
		assert.Equal(t, items[i].Title, it.Title)
		assert.Equal(t, items[i].Desc, it.Desc)
		assert.Equal(t, items[i].Tags, it.Tags)
		assert.Equal(t, items[i].Fav, it.Fav)
		assert.Equal(t, items[i].Full, it.Full)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{nope"},
		{"missing items", `{"title":"x"}`},
		{"items not array", `{"items":{"a":1}}`},
		{"items null", `{"items":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
		})
	}

	_, err := Parse([]byte(`{"title":"x"}`))
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestNewDocumentDefaultsTitle(t *testing.T) {
	doc := NewDocument(gallery.Meta{}, nil)
	assert.Equal(t, DefaultTitle, doc.Title)
	data, err := Encode(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, []any{}, generic["items"])
}

func TestPartNames(t *testing.T) {
	at := time.Date(2026, 3, 7, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, []string{
		"trip_2026-03-07_09-05.json",
		"trip_2026-03-07_09-05-part2.json",
		"trip_2026-03-07_09-05-part3.json",
	}, PartNames("trip", at, 3))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "gallery", BaseName("", ""))
	assert.Equal(t, "Summer_2025", BaseName(" Summer 2025 ", "Trips"))
	assert.Equal(t, "a_b", BaseName("a/../b", ""))
	assert.Equal(t, "Family_Trips", BaseName("  ", "Family Trips"), "blank session falls back to the title")
	assert.Equal(t, "Trips", BaseName("///", "Trips"))
	assert.Equal(t, "gallery", BaseName("", "***"))
}

func TestBuildAndWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	at := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	parts, err := Build(gallery.Meta{Session: "s"}, makeItems(20, 900), at, 5000)
	require.NoError(t, err)
	require.Greater(t, len(parts), 1)

	paths, err := WriteFiles(dir, parts)
	require.NoError(t, err)
	require.Len(t, paths, len(parts))
	assert.Equal(t, filepath.Join(dir, "s_2026-01-02_03-04.json"), paths[0])

	parts, err = Build(gallery.Meta{Title: "My Album"}, makeItems(1, 10), at, 5000)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "My_Album_2026-01-02_03-04.json", parts[0].Name)
	for i, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, parts[i].Data, data)
	}
}
