// Package imaging implements decoding, thumbnailing and dimension probing for
// the closed set of supported raster formats.
package imaging

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	chaiwebp "github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	xwebp "golang.org/x/image/webp"

	"github.com/mediavault/backend/internal/domain/shared"
)

// Format enumerates the supported image formats. All decode/encode decisions
// go through the codec table keyed by this type rather than open-ended MIME
// string dispatch.
type Format string

const (
	FormatJPEG Format = "image/jpeg"
	FormatPNG  Format = "image/png"
	FormatGIF  Format = "image/gif"
	FormatWebP Format = "image/webp"
)

// Fixed per-format encoding parameters.
const (
	jpegQuality = 85
	webpQuality = 85
)

type codec struct {
	extension    string
	hasAlpha     bool
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
	encode       func(io.Writer, image.Image) error
}

var codecs = map[Format]codec{
	FormatJPEG: {
		extension:    ".jpg",
		decode:       jpeg.Decode,
		decodeConfig: jpeg.DecodeConfig,
		encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		},
	},
	FormatPNG: {
		extension:    ".png",
		hasAlpha:     true,
		decode:       png.Decode,
		decodeConfig: png.DecodeConfig,
		encode: func(w io.Writer, img image.Image) error {
			enc := png.Encoder{CompressionLevel: png.DefaultCompression}
			return enc.Encode(w, img)
		},
	},
	FormatGIF: {
		extension:    ".gif",
		hasAlpha:     true,
		decode:       gif.Decode,
		decodeConfig: gif.DecodeConfig,
		encode: func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		},
	},
	FormatWebP: {
		extension:    ".webp",
		decode:       xwebp.Decode,
		decodeConfig: xwebp.DecodeConfig,
		encode: func(w io.Writer, img image.Image) error {
			return chaiwebp.Encode(w, img, &chaiwebp.Options{Quality: webpQuality})
		},
	},
}

// ErrUnsupportedFormat is returned when a MIME type falls outside the closed
// format set.
var ErrUnsupportedFormat = shared.NewDomainError("UNSUPPORTED_FORMAT", "Only JPEG, PNG, GIF, and WebP images are allowed")

// FormatFromMIME maps a MIME type onto the closed format enumeration.
func FormatFromMIME(mime string) (Format, error) {
	f := Format(mime)
	if _, ok := codecs[f]; !ok {
		return "", ErrUnsupportedFormat
	}
	return f, nil
}

// DetectFormat sniffs the content of an upload and maps it onto the format
// enumeration. The returned string is the sniffed MIME type.
func DetectFormat(data []byte) (Format, string, error) {
	mt := mimetype.Detect(data)
	f, err := FormatFromMIME(mt.String())
	if err != nil {
		return "", mt.String(), err
	}
	return f, mt.String(), nil
}

// MIME returns the MIME type of the format.
func (f Format) MIME() string {
	return string(f)
}

// Extension returns the canonical file extension, with leading dot.
func (f Format) Extension() string {
	return codecs[f].extension
}

// HasAlpha reports whether the format carries an alpha channel.
func (f Format) HasAlpha() bool {
	return codecs[f].hasAlpha
}

// Decode decodes an image of a known format.
func Decode(r io.Reader, f Format) (image.Image, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return c.decode(r)
}

// Encode encodes an image in the given format at the fixed per-format
// quality/compression settings.
func Encode(w io.Writer, img image.Image, f Format) error {
	c, ok := codecs[f]
	if !ok {
		return ErrUnsupportedFormat
	}
	return c.encode(w, img)
}
