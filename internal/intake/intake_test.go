package intake

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fygallery/internal/gallery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape full", 4000, 3000, 2200, 2200, 1650},
		{"landscape thumb", 4000, 3000, 800, 800, 600},
		{"portrait", 3000, 4000, 800, 600, 800},
		{"never upscales", 640, 480, 2200, 640, 480},
		{"exact fit", 800, 800, 800, 800, 800},
		{"thin strip keeps a pixel", 10000, 1, 800, 800, 1},
		{"rounding", 1001, 333, 500, 500, 166},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Dimensions(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestProcessProducesBothProfiles(t *testing.T) {
	p := New(Profile{MaxEdge: 220, Quality: 0.85}, Profile{MaxEdge: 80, Quality: 0.82}, nil)
	res, err := p.Process(context.Background(), "/photos/Beach Day.png", pngBytes(t, testImage(400, 300)))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.NoError(t, res.Cause)
	assert.Equal(t, "Beach Day", res.Title)

	assert.Equal(t, "image/jpeg", res.Full.MIME)
	assert.Equal(t, 220, res.Full.Width)
	assert.Equal(t, 165, res.Full.Height)
	assert.Equal(t, 80, res.Thumb.Width)
	assert.Equal(t, 60, res.Thumb.Height)

	full, _, err := image.Decode(bytes.NewReader(res.Full.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 220, 165), full.Bounds())

	var it gallery.Item
	res.Apply(&it)
	assert.True(t, strings.HasPrefix(it.Full, "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(it.Thumb, "data:image/jpeg;base64,"))
}

func TestProcessKeepsSmallImagesAtSize(t *testing.T) {
	p := New(FullProfile, ThumbProfile, nil)
	res, err := p.Process(context.Background(), "small.png", pngBytes(t, testImage(64, 48)))
	require.NoError(t, err)
	assert.Equal(t, 64, res.Full.Width)
	assert.Equal(t, 48, res.Thumb.Height)
}

func TestProcessDegradesCorruptInput(t *testing.T) {
	p := New(FullProfile, ThumbProfile, nil)
	data := []byte("definitely not an image")
	res, err := p.Process(context.Background(), "broken.jpg", data)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	var decErr *DecodeError
	require.ErrorAs(t, res.Cause, &decErr)
	assert.Equal(t, "broken.jpg", decErr.Name)

	assert.Equal(t, "image/jpeg", res.Full.MIME)
	assert.Equal(t, data, res.Full.Data)
	assert.Equal(t, res.Full, res.Thumb)
}

func TestProcessZeroByteFile(t *testing.T) {
	p := New(FullProfile, ThumbProfile, nil)
	res, err := p.Process(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "application/octet-stream", res.Full.MIME)
	assert.Equal(t, "data:application/octet-stream;base64,", res.Full.DataURI())
}

type stubCodec struct {
	mime string
	out  []byte
	err  error
}

func (c stubCodec) MIME() string { return c.mime }

func (c stubCodec) Encode(w io.Writer, _ image.Image, _ float64) error {
	if c.err != nil {
		return c.err
	}
	_, err := w.Write(c.out)
	return err
}

func TestShortPrimaryOutputFallsBackToPNG(t *testing.T) {
	p := New(Profile{MaxEdge: 50, Quality: 0.9}, Profile{MaxEdge: 20, Quality: 0.9}, nil)
	p.Primary = stubCodec{mime: "image/webp", out: []byte("RIFF")}
	res, err := p.Process(context.Background(), "a.png", pngBytes(t, testImage(100, 100)))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "image/png", res.Full.MIME)
	assert.Equal(t, "image/png", res.Thumb.MIME)
}

func TestTransparentImageKeepsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 40, B: 90, A: uint8(x * 6)})
		}
	}
	res, err := New(FullProfile, ThumbProfile, nil).Process(context.Background(), "logo.png", pngBytes(t, src))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "image/png", res.Full.MIME)
	assert.Equal(t, "image/png", res.Thumb.MIME)

	out, err := png.Decode(bytes.NewReader(res.Full.Data))
	require.NoError(t, err)
	_, _, _, a := out.At(0, 0).RGBA()
	assert.Zero(t, a, "the transparent edge survives")

	photo, err := New(FullProfile, ThumbProfile, nil).Process(context.Background(), "photo.png", pngBytes(t, testImage(40, 30)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", photo.Full.MIME)
}

func TestEncodeFailureDegrades(t *testing.T) {
	p := New(FullProfile, ThumbProfile, nil)
	p.Primary = stubCodec{mime: "image/jpeg", err: errors.New("boom")}
	p.Fallback = stubCodec{mime: "image/png"}
	data := pngBytes(t, testImage(10, 10))
	res, err := p.Process(context.Background(), "x.png", data)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	var encErr *EncodeError
	require.ErrorAs(t, res.Cause, &encErr)
	assert.Equal(t, FullProfile, encErr.Profile)
	assert.Equal(t, "image/png", res.Full.MIME)
	assert.Equal(t, data, res.Full.Data)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(FullProfile, ThumbProfile, nil).Process(ctx, "a.png", []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IMG_0001.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, testImage(30, 20)), 0600))
	res, err := New(FullProfile, ThumbProfile, nil).ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "IMG_0001", res.Title)
	assert.Nil(t, res.EXIF)

	_, err = New(FullProfile, ThumbProfile, nil).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "holiday.2024", TitleFromName("holiday.2024.jpeg"))
	assert.Equal(t, "noext", TitleFromName("dir/noext"))
	assert.Equal(t, "", TitleFromName(""))
}
