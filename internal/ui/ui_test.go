package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fygallery/internal/gallery"
	"fygallery/internal/status"
	"fygallery/internal/viewer"
)

func jpegURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		img.Set(x, 2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return gallery.EncodeDataURI("image/jpeg", buf.Bytes())
}

func TestCountText(t *testing.T) {
	assert.Equal(t, "0 photos", countText(0, 0, 0))
	assert.Equal(t, "12 photos", countText(12, 12, 0))
	assert.Equal(t, "3 of 12 photos", countText(3, 12, 0))
	assert.Equal(t, "3 of 12 photos, 2 selected", countText(3, 12, 2))
}

func TestStatusText(t *testing.T) {
	assert.Empty(t, statusText(status.Entry{}, 0, 0))
	assert.Equal(t, "[1/3] Added photo", statusText(status.Entry{Level: status.Info, Message: "Added photo"}, 0, 3))
	assert.Equal(t, "[3/3] error: Save failed", statusText(status.Entry{Level: status.Error, Message: "Save failed"}, 2, 3))
}

func TestLabelVisible(t *testing.T) {
	assert.True(t, labelVisible(gallery.LabelsOn, 100, ""))
	assert.False(t, labelVisible(gallery.LabelsOff, 400, "Beach"))
	assert.True(t, labelVisible(gallery.LabelsAuto, 240, "Beach"))
	assert.False(t, labelVisible(gallery.LabelsAuto, 240, ""), "auto hides empty titles")
	assert.False(t, labelVisible(gallery.LabelsAuto, 120, "Beach"), "auto hides labels on narrow cards")
}

func TestCardImageSize(t *testing.T) {
	assert.Equal(t, fyne.NewSize(240, 180), cardImageSize(240))
}

func TestTagDiff(t *testing.T) {
	added, removed := tagDiff([]string{"beach", "sun", "2024"}, []string{"sun", "family", "beach"})
	assert.Equal(t, []string{"family"}, added)
	assert.Equal(t, []string{"2024"}, removed)

	added, removed = tagDiff(nil, nil)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestTagsLine(t *testing.T) {
	assert.Empty(t, tagsLine(nil))
	assert.Equal(t, "#beach  #sun", tagsLine([]string{"beach", "sun"}))
}

func TestSortAndFilterTags(t *testing.T) {
	tags := []gallery.TagWithCount{
		{Name: "sun", Count: 1},
		{Name: "beach", Count: 3},
		{Name: "family", Count: 3},
		{Name: "Sunset", Count: 2},
	}
	sortTags(tags)
	assert.Equal(t, []gallery.TagWithCount{
		{Name: "beach", Count: 3},
		{Name: "family", Count: 3},
		{Name: "Sunset", Count: 2},
		{Name: "sun", Count: 1},
	}, tags)

	got := filterTags(tags, " SUN ")
	require.Len(t, got, 2)
	assert.Equal(t, "Sunset", got[0].Name)
	assert.Equal(t, "sun", got[1].Name)
	assert.Len(t, filterTags(tags, ""), 4)
	assert.Empty(t, filterTags(tags, "xyz"))
}

func TestTagChipText(t *testing.T) {
	assert.Equal(t, "beach (3)", tagChipText("beach", 3))
}

func TestPrefsFromForm(t *testing.T) {
	base := gallery.DefaultPreferences()

	p := prefsFromForm(base, gallery.LabelsOff, " 320 ", true, true, "1.5")
	assert.Equal(t, gallery.Preferences{Labels: gallery.LabelsOff, CardMin: 320, FavFilter: true, Slideshow: true, SlideMs: 1500}, p)

	p = prefsFromForm(base, "", "wide", false, false, "0.2")
	assert.Equal(t, gallery.LabelsAuto, p.Labels, "unknown label mode falls back to auto")
	assert.Equal(t, base.CardMin, p.CardMin, "unparseable width keeps the old value")
	assert.Equal(t, 800, p.SlideMs, "interval is floored")
}

func TestTernaryString(t *testing.T) {
	assert.Equal(t, "Cmd", ternaryString(true, "Cmd", "Ctrl"))
	assert.Equal(t, "Ctrl", ternaryString(false, "Cmd", "Ctrl"))
}

func TestImageRect(t *testing.T) {
	fitted := viewer.Size{W: 400, H: 300}

	x0, y0, dw, dh := imageRect(fitted, 1, viewer.Point{}, 400, 300, 1)
	assert.Equal(t, [4]float64{0, 0, 400, 300}, [4]float64{x0, y0, dw, dh})

	x0, y0, dw, dh = imageRect(fitted, 2, viewer.Point{X: 50, Y: -20}, 400, 300, 1)
	assert.Equal(t, [4]float64{-150, -170, 800, 600}, [4]float64{x0, y0, dw, dh})

	// HiDPI rasters scale everything by the pixel ratio.
	x0, y0, dw, dh = imageRect(fitted, 1, viewer.Point{X: 10}, 800, 600, 2)
	assert.Equal(t, [4]float64{20, 0, 800, 600}, [4]float64{x0, y0, dw, dh})
}

func TestThumbnailManager(t *testing.T) {
	test.NewApp()
	var failed []string
	tm := NewThumbnailManager(func(id string, _ error) { failed = append(failed, id) })

	uri := jpegURI(t)
	a := gallery.Item{ID: "a", Thumb: uri}
	res := tm.GetThumbnail(a, func(fyne.Resource) { t.Error("jpeg thumbnails are not decoded in the background") })
	require.NotNil(t, res)
	assert.Equal(t, "a", res.Name())
	assert.Equal(t, 1, tm.Len())
	assert.Same(t, res, tm.GetThumbnail(a, nil), "second lookup hits the cache")

	tm.GetThumbnail(gallery.Item{ID: "bad", Full: "data:image/jpeg;base64,%%%"}, nil)
	assert.Equal(t, []string{"bad"}, failed)

	tm.GetThumbnail(gallery.Item{ID: "empty"}, nil)
	assert.Equal(t, 1, tm.Len(), "items without an image are not cached")

	b := gallery.Item{ID: "b", Full: uri}
	tm.GetThumbnail(b, nil)
	assert.Equal(t, 2, tm.Len())

	tm.Prune([]gallery.Item{b})
	assert.Equal(t, 1, tm.Len())
}
