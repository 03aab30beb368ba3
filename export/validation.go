package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ResolveOptions validates and normalizes export options.
func ResolveOptions(opts Options) (Options, error) {
	opts.Format = NormalizeFormat(opts.Format)
	if !opts.Format.Supported() {
		return Options{}, NewError(KindValidation, fmt.Sprintf("unsupported format %q", opts.Format), nil)
	}

	if math.IsNaN(opts.Quality) || opts.Quality < 0 || opts.Quality > 1 {
		return Options{}, NewError(KindValidation, "quality must be between 0 and 1", nil)
	}

	if opts.Format != FormatPDF {
		opts.Continuous = false
	}

	opts.Filename = strings.TrimSpace(opts.Filename)
	if opts.Filename != "" {
		if opts.Filename != filepath.Base(opts.Filename) || opts.Filename == "." || opts.Filename == ".." {
			return Options{}, NewError(KindValidation, "filename must not contain path separators", nil)
		}
	}

	return opts, nil
}
