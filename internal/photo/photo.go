// Package photo normalizes car photos before they are persisted: the
// image is rotated upright according to its EXIF orientation, resized to
// fit a configured bounding box and re-encoded as JPEG.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register the PNG decoder
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrDecode is returned when the submitted payload is not a decodable
// image. The photo is mandatory, so this fails the whole save.
var ErrDecode = errors.New("failed to decode photo")

// Options control the normalization output.
type Options struct {
	MaxDimension int // MaxDimension bounds both axes; images already inside the box are not upscaled.
	Quality      int // Quality is the JPEG encoder quality, 1-100.
}

// Normalize decodes data, fixes the orientation, fits the image into the
// configured box and re-encodes it. It returns the encoded bytes and the
// filename with its extension rewritten for the output format.
func Normalize(data []byte, filename string, opts Options) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	img = fixOrientation(img, data)

	if img.Bounds().Dx() > opts.MaxDimension || img.Bounds().Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode photo: %w", err)
	}

	return buf.Bytes(), replaceExt(filename, ".jpg"), nil
}

// fixOrientation rotates the image upright for EXIF orientations 3, 6
// and 8. Missing or unreadable EXIF metadata is non-fatal: the image is
// returned as decoded.
func fixOrientation(img image.Image, raw []byte) image.Image {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}

	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	switch orientation {
	case 3:
		return imaging.Rotate180(img)
	case 6:
		return imaging.Rotate270(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func replaceExt(filename, ext string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		filename = filename[:idx]
	}
	return filename + ext
}
