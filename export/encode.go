package export

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"
)

// DefaultJPEGQuality applies when a jpeg export does not set a quality.
const DefaultJPEGQuality = 0.92

// EncodeRaster encodes the composite bitmap as a single image file.
// PNG output ignores quality.
func EncodeRaster(img image.Image, format Format, quality float64) ([]byte, error) {
	if img == nil {
		return nil, NewError(KindValidation, "image is required", nil)
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, NewError(KindInternal, "png encode failed", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
			return nil, NewError(KindInternal, "jpeg encode failed", err)
		}
	default:
		return nil, NewError(KindValidation, "unsupported raster format: "+string(format), nil)
	}
	return buf.Bytes(), nil
}

// EncodeLossless encodes an image as PNG.
func EncodeLossless(img image.Image) ([]byte, error) {
	return EncodeRaster(img, FormatPNG, 0)
}

func jpegQuality(quality float64) int {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
