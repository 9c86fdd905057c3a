package intake

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmpty = errors.New("file is empty")

// exifFields are the tags reported alongside a decoded image.
var exifFields = []exif.FieldName{
	exif.DateTime, exif.Model, exif.Make, exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings, exif.FocalLength,
}

// decode tries the registered decoders first, honouring the EXIF orientation
// tag. Camera files the decoders reject often still carry a JPEG preview in
// their EXIF block; that preview is the second decode path.
func decode(data []byte) (image.Image, map[string]string, error) {
	if len(data) == 0 {
		return nil, nil, errEmpty
	}
	x := readExif(data)
	info := exifInfo(x)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, info, nil
	}
	thumb, terr := decodeExifThumbnail(x)
	if terr != nil {
		return nil, info, errors.Join(err, terr)
	}
	return thumb, info, nil
}

// readExif parses the EXIF block, if any. Malformed camera files have been
// seen to panic the parser.
func readExif(data []byte) (x *exif.Exif) {
	defer func() {
		if recover() != nil {
			x = nil
		}
	}()
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return x
}

func decodeExifThumbnail(x *exif.Exif) (image.Image, error) {
	if x == nil {
		return nil, errors.New("no EXIF data to fall back on")
	}
	raw, err := x.JpegThumbnail()
	if err != nil {
		return nil, fmt.Errorf("no embedded preview: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("embedded preview is unreadable: %w", err)
	}
	return img, nil
}

func exifInfo(x *exif.Exif) map[string]string {
	if x == nil {
		return nil
	}
	result := make(map[string]string)
	for _, field := range exifFields {
		tag, err := x.Get(field)
		if err == nil && tag != nil {
			result[string(field)] = tag.String()
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// ReadEXIF returns the common EXIF fields of an image, or nil when it has
// none.
func ReadEXIF(r io.Reader) map[string]string {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return exifInfo(readExif(data))
}
