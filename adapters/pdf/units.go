package exportpdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-snapshot/export"
)

const pointsPerMM = 72.0 / 25.4

var lengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// PageSize is a page size in millimeters.
type PageSize struct {
	Width  float64
	Height float64
}

// Landscape returns the size with the longer side as width.
func (s PageSize) Landscape() PageSize {
	if s.Width >= s.Height {
		return s
	}
	return PageSize{Width: s.Height, Height: s.Width}
}

var pageSizesMM = map[string]PageSize{
	"A3":     {Width: 297, Height: 420},
	"A4":     {Width: 210, Height: 297},
	"A5":     {Width: 148, Height: 210},
	"LETTER": {Width: 215.9, Height: 279.4},
	"LEGAL":  {Width: 215.9, Height: 355.6},
}

// LookupPageSize returns the portrait size of a named paper format.
func LookupPageSize(name string) (PageSize, error) {
	size, ok := pageSizesMM[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return PageSize{}, export.NewError(export.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", name), nil)
	}
	return size, nil
}

// ParseLengthMM parses a length such as "10mm", "1cm", "0.5in" or "72pt" into millimeters.
// Bare numbers are millimeters.
func ParseLengthMM(value string) (float64, error) {
	matches := lengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), nil)
	}

	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}

	switch unit := strings.ToLower(matches[2]); unit {
	case "", "mm":
		return amount, nil
	case "cm":
		return amount * 10, nil
	case "in":
		return amount * 25.4, nil
	case "pt":
		return amount / pointsPerMM, nil
	case "px":
		return amount * 25.4 / 96.0, nil
	default:
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
}

func mmToPt(mm float64) float64 {
	return mm * pointsPerMM
}
