package export

import "strings"

// NormalizeFormat coerces format values into known aliases with defaults applied.
func NormalizeFormat(format Format) Format {
	normalized := strings.ToLower(strings.TrimSpace(string(format)))
	switch normalized {
	case "", string(FormatPDF):
		return FormatPDF
	case "jpg", string(FormatJPEG):
		return FormatJPEG
	default:
		return Format(normalized)
	}
}

// Supported reports whether the format has an encoder.
func (f Format) Supported() bool {
	switch f {
	case FormatPDF, FormatPNG, FormatJPEG:
		return true
	}
	return false
}

// IsRaster reports whether the format is a single image file.
func (f Format) IsRaster() bool {
	return f == FormatPNG || f == FormatJPEG
}

// Extension returns the file extension without the leading dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
