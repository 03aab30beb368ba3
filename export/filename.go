package export

import (
	"strings"
	"time"
)

const (
	defaultTitle     = "export"
	continuousSuffix = "_continuous"
	filenameDate     = "2006-01-02"
)

// SanitizeTitle replaces every character outside [A-Za-z0-9] with an underscore.
func SanitizeTitle(title string) string {
	if title == "" {
		return defaultTitle
	}
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DefaultFilename returns <sanitized-title>_<date>, with a continuous suffix when requested.
func DefaultFilename(title string, now time.Time, continuous bool) string {
	name := SanitizeTitle(title) + "_" + now.UTC().Format(filenameDate)
	if continuous {
		name += continuousSuffix
	}
	return name
}

// BuildFilename resolves the artifact filename for a run, including the extension.
func BuildFilename(title string, opts Options, now time.Time) string {
	base := strings.TrimSpace(opts.Filename)
	if base == "" {
		base = DefaultFilename(title, now, opts.Format == FormatPDF && opts.Continuous)
	}
	ext := "." + opts.Format.Extension()
	if !strings.HasSuffix(strings.ToLower(base), ext) {
		base += ext
	}
	return base
}
