package intake

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// minEncodedBytes is the shortest output accepted from a codec. Anything
// shorter cannot hold a real image header and triggers the fallback codec.
const minEncodedBytes = 16

// Codec writes an image in one format.
type Codec interface {
	MIME() string
	Encode(w io.Writer, img image.Image, quality float64) error
}

// JPEGCodec encodes at the profile quality.
type JPEGCodec struct{}

func (JPEGCodec) MIME() string { return "image/jpeg" }

func (JPEGCodec) Encode(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	q = min(max(q, 1), 100)
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
}

// PNGCodec is lossless and ignores the quality factor.
type PNGCodec struct{}

func (PNGCodec) MIME() string { return "image/png" }

func (PNGCodec) Encode(w io.Writer, img image.Image, _ float64) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
}

func encodeWith(c Codec, img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, img, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
