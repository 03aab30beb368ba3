package exportpdf

import (
	"fmt"

	"github.com/goliatone/go-snapshot/export"
)

// Box is a rectangle in millimeters, origin at the top-left of the page.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

// PageLayout places one bitmap slice on one page.
type PageLayout struct {
	Section export.SectionPosition
	Page    PageSize
	Image   Box
}

// SectionLayouts returns one page per section. Each slice is fitted to the content
// width, shrunk to the content height when taller, centered horizontally, and
// centered vertically.
func SectionLayouts(width int, positions []export.SectionPosition, page PageSize, margin float64) ([]PageLayout, error) {
	if width <= 0 {
		return nil, export.NewError(export.KindValidation, "composite width must be positive", nil)
	}
	contentW := page.Width - 2*margin
	contentH := page.Height - 2*margin
	if contentW <= 0 || contentH <= 0 {
		return nil, export.NewError(export.KindValidation, "pdf margin leaves no content area", nil)
	}

	layouts := make([]PageLayout, 0, len(positions))
	for _, pos := range positions {
		height := pos.Height()
		if height <= 0 {
			return nil, export.NewError(export.KindValidation, fmt.Sprintf("section %q has no height", pos.ID), nil)
		}
		ratio := float64(height) / float64(width)

		w := contentW
		h := contentW * ratio
		if h > contentH {
			h = contentH
			w = contentH / ratio
		}
		layouts = append(layouts, PageLayout{
			Section: pos,
			Page:    page,
			Image: Box{
				X: margin + (contentW-w)/2,
				Y: margin + (contentH-h)/2,
				W: w,
				H: h,
			},
		})
	}
	return layouts, nil
}

// ContinuousLayout returns a single page of pageWidth whose height grows with the composite.
func ContinuousLayout(width, height int, pageWidth, margin float64) (PageLayout, error) {
	if width <= 0 || height <= 0 {
		return PageLayout{}, export.NewError(export.KindValidation, "composite must not be empty", nil)
	}
	contentW := pageWidth - 2*margin
	if contentW <= 0 {
		return PageLayout{}, export.NewError(export.KindValidation, "pdf margin leaves no content area", nil)
	}
	contentH := contentW * float64(height) / float64(width)
	return PageLayout{
		Section: export.SectionPosition{Start: 0, End: height},
		Page:    PageSize{Width: pageWidth, Height: contentH + 2*margin},
		Image:   Box{X: margin, Y: margin, W: contentW, H: contentH},
	}, nil
}
