package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	xdraw "golang.org/x/image/draw"
)

const (
	DefaultSectionSpacing   = 40
	DefaultInterRegionDelay = 100 * time.Millisecond

	// captureProgressShare is the fraction of overall progress spent capturing.
	captureProgressShare = 0.7
)

// Compositor captures regions in order and stitches them into one composite bitmap.
type Compositor struct {
	Capturer         *Capturer
	Spacing          int
	InterRegionDelay time.Duration
	Background       color.Color
	Progress         ProgressFunc
	Logger           Logger
	Sleep            SleepFunc
}

// NewCompositor creates a compositor with default spacing and delays.
func NewCompositor(capturer *Capturer) *Compositor {
	return &Compositor{
		Capturer:         capturer,
		Spacing:          DefaultSectionSpacing,
		InterRegionDelay: DefaultInterRegionDelay,
		Background:       white,
		Logger:           NopLogger{},
	}
}

// Compose captures every region sequentially and stitches the results.
func (c *Compositor) Compose(ctx context.Context, regions []Region) (Composite, error) {
	if len(regions) == 0 {
		return Composite{}, NewError(KindNotFound, "no sections found", nil)
	}
	if c == nil || c.Capturer == nil {
		return Composite{}, NewError(KindInternal, "compositor capturer is not configured", nil)
	}

	captures := make([]Capture, 0, len(regions))
	for i, region := range regions {
		if i > 0 {
			if err := c.sleep(ctx, c.InterRegionDelay); err != nil {
				return Composite{}, err
			}
		}
		capture := c.Capturer.Capture(ctx, region)
		if err := ctx.Err(); err != nil {
			return Composite{}, err
		}
		captures = append(captures, capture)
		c.report(Progress{
			Stage:    StageCapture,
			Fraction: captureProgressShare * float64(i+1) / float64(len(regions)),
			Section:  region.ID,
		})
	}

	composite, err := Stitch(captures, c.spacing(), c.Background)
	if err != nil {
		return Composite{}, err
	}
	c.logger().Infof("composed %d sections into %dx%d (%d placeholders)",
		len(composite.Positions), composite.Image.Bounds().Dx(), composite.Image.Bounds().Dy(), composite.Placeholders)
	return composite, nil
}

// Stitch stacks captures top to bottom, left-aligned, separated by spacing pixels.
func Stitch(captures []Capture, spacing int, background color.Color) (Composite, error) {
	if len(captures) == 0 {
		return Composite{}, NewError(KindNotFound, "no sections found", nil)
	}
	if spacing < 0 {
		return Composite{}, NewError(KindValidation, "section spacing must not be negative", nil)
	}

	positions := make([]SectionPosition, 0, len(captures))
	placeholders := 0
	maxWidth := 0
	offset := 0
	for _, capture := range captures {
		if capture.Image == nil {
			return Composite{}, NewError(KindInternal, fmt.Sprintf("section %q has no bitmap", capture.RegionID), nil)
		}
		bounds := capture.Image.Bounds()
		positions = append(positions, SectionPosition{
			ID:    capture.RegionID,
			Start: offset,
			End:   offset + bounds.Dy(),
		})
		if bounds.Dx() > maxWidth {
			maxWidth = bounds.Dx()
		}
		if capture.Placeholder {
			placeholders++
		}
		offset += bounds.Dy() + spacing
	}

	height := offset - spacing
	if maxWidth <= 0 || height <= 0 {
		return Composite{}, NewError(KindInternal, "composite bitmap would be empty", nil)
	}

	canvas := filledRGBA(maxWidth, height, background)
	for i, capture := range captures {
		bounds := capture.Image.Bounds()
		dst := image.Rect(0, positions[i].Start, bounds.Dx(), positions[i].End)
		xdraw.Draw(canvas, dst, capture.Image, bounds.Min, xdraw.Over)
	}

	return Composite{
		Image:        canvas,
		Positions:    positions,
		Placeholders: placeholders,
	}, nil
}

func (c *Compositor) spacing() int {
	if c.Spacing < 0 {
		return DefaultSectionSpacing
	}
	return c.Spacing
}

func (c *Compositor) report(p Progress) {
	if c.Progress != nil {
		c.Progress(p)
	}
}

func (c *Compositor) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (c *Compositor) logger() Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}
