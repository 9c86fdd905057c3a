// Package intake turns an uploaded image file into the two renditions the
// gallery stores: a viewer-sized "full" image and a grid-sized "thumb".
package intake

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"fygallery/internal/gallery"
)

// Profile is one target rendition.
type Profile struct {
	MaxEdge int
	Quality float64 // 0..1
}

var (
	FullProfile  = Profile{MaxEdge: 2200, Quality: 0.85}
	ThumbProfile = Profile{MaxEdge: 800, Quality: 0.82}
)

// Rendition is one encoded output image.
type Rendition struct {
	MIME   string
	Data   []byte
	Width  int
	Height int
}

// DataURI inlines the rendition for storage.
func (r Rendition) DataURI() string {
	return gallery.EncodeDataURI(r.MIME, r.Data)
}

// Result is the outcome of processing one file. When Degraded is set the
// source could not be decoded or encoded and both renditions hold the
// original bytes; Cause says why.
type Result struct {
	Title    string
	Full     Rendition
	Thumb    Rendition
	EXIF     map[string]string
	Degraded bool
	Cause    error
}

// Apply copies the renditions into an item.
func (r Result) Apply(it *gallery.Item) {
	it.Full = r.Full.DataURI()
	it.Thumb = r.Thumb.DataURI()
}

// DecodeError is returned when no decode path understood the source.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when neither the primary nor the fallback codec
// produced usable output.
type EncodeError struct {
	Profile Profile
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %dpx rendition: %v", e.Profile.MaxEdge, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Pipeline decodes, scales and encodes images. The zero value is not usable;
// call New.
type Pipeline struct {
	Full     Profile
	Thumb    Profile
	Primary  Codec
	Fallback Codec
	Alpha    Codec // replaces Primary for images with transparency
	logger   *slog.Logger
}

// New returns a pipeline with the given profiles, JPEG as the primary codec
// and PNG as the fallback. Transparent images are encoded as PNG.
func New(full, thumb Profile, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Full:     full,
		Thumb:    thumb,
		Primary:  JPEGCodec{},
		Fallback: PNGCodec{},
		Alpha:    PNGCodec{},
		logger:   logger,
	}
}

// TitleFromName is the default item title for an uploaded file: its base
// name without extension.
func TitleFromName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProcessFile reads path and processes its contents.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Process(ctx, path, data)
}

// Process produces both renditions for data. Decode and encode failures
// never fail the call: the result degrades to the raw bytes so the item stays
// visible. Only context cancellation is returned as an error.
func (p *Pipeline) Process(ctx context.Context, name string, data []byte) (Result, error) {
	res := Result{Title: TitleFromName(name)}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	img, exifData, err := decode(data)
	res.EXIF = exifData
	if err != nil {
		return p.degrade(res, name, data, &DecodeError{Name: name, Err: err}), nil
	}

	res.Full, err = p.render(img, p.Full)
	if err != nil {
		return p.degrade(res, name, data, err), nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Thumb, err = p.render(img, p.Thumb)
	if err != nil {
		return p.degrade(res, name, data, err), nil
	}
	return res, nil
}

func (p *Pipeline) degrade(res Result, name string, data []byte, cause error) Result {
	p.logger.Warn("storing original bytes for undecodable image", "file", name, "size", len(data), "error", cause)
	raw := Rendition{MIME: mimeFor(name), Data: data}
	res.Full = raw
	res.Thumb = raw
	res.Degraded = true
	res.Cause = cause
	return res
}

func (p *Pipeline) render(img image.Image, prof Profile) (Rendition, error) {
	scaled := Scale(img, prof.MaxEdge)
	b := scaled.Bounds()
	mimeType, data, err := p.encode(scaled, prof)
	if err != nil {
		return Rendition{}, err
	}
	return Rendition{MIME: mimeType, Data: data, Width: b.Dx(), Height: b.Dy()}, nil
}

func (p *Pipeline) encode(img image.Image, prof Profile) (string, []byte, error) {
	codecs := []Codec{p.Primary, p.Fallback}
	if p.Alpha != nil && !opaque(img) {
		codecs = []Codec{p.Alpha, p.Fallback}
	}
	var errs []error
	for i, c := range codecs {
		if c == nil || (i > 0 && codecs[0] != nil && c.MIME() == codecs[0].MIME()) {
			continue
		}
		data, err := encodeWith(c, img, prof.Quality)
		if err == nil && len(data) >= minEncodedBytes {
			return c.MIME(), data, nil
		}
		if err == nil {
			err = fmt.Errorf("%s encoder returned %d bytes", c.MIME(), len(data))
		}
		p.logger.Debug("encoder rejected output", "mime", c.MIME(), "error", err)
		errs = append(errs, err)
	}
	return "", nil, &EncodeError{Profile: prof, Err: errors.Join(errs...)}
}

// opaque reports whether img has no transparent pixels. Images that cannot
// tell are treated as opaque.
func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// Dimensions returns the size of a w×h image scaled uniformly so its longer
// edge fits maxEdge. Images are never upscaled and no side drops below 1.
func Dimensions(w, h, maxEdge int) (int, int) {
	if w <= 0 || h <= 0 || maxEdge <= 0 {
		return max(w, 1), max(h, 1)
	}
	ratio := math.Min(1, float64(maxEdge)/float64(max(w, h)))
	return max(1, int(math.Round(float64(w)*ratio))), max(1, int(math.Round(float64(h)*ratio)))
}

// Scale resamples img with a Lanczos filter so that its longer edge fits
// maxEdge. Images already small enough are returned as is.
func Scale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := Dimensions(b.Dx(), b.Dy(), maxEdge)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
}

func mimeFor(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
