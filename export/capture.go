package export

import (
	"context"
	"image/color"
	"time"
)

const (
	DefaultScale       = 2.0
	DefaultSettleDelay = 200 * time.Millisecond
)

// Capturer rasterizes single regions. It never fails: errors degrade to placeholders.
type Capturer struct {
	Host        Host
	Scale       float64
	Background  color.Color
	SettleDelay time.Duration
	Overrides   StyleOverrides
	Logger      Logger
	Sleep       SleepFunc
}

// NewCapturer creates a capturer with default settings.
func NewCapturer(host Host) *Capturer {
	return &Capturer{
		Host:        host,
		Scale:       DefaultScale,
		Background:  white,
		SettleDelay: DefaultSettleDelay,
		Overrides:   ExpandedStyles,
		Logger:      NopLogger{},
	}
}

// Capture rasterizes region, substituting a placeholder on any failure.
func (c *Capturer) Capture(ctx context.Context, region Region) Capture {
	if c == nil || c.Host == nil {
		return errorCapture(region, nil, NewError(KindInternal, "capturer host is not configured", nil))
	}
	logger := c.logger()

	size, err := c.Host.Measure(ctx, region)
	if err != nil {
		logger.Errorf("section %q: measure failed: %v", region.ID, err)
		return errorCapture(region, c.Background, err)
	}
	if size.Empty() {
		logger.Debugf("section %q: empty box %.0fx%.0f, using placeholder", region.ID, size.Width, size.Height)
		return Capture{
			RegionID:    region.ID,
			Image:       BlankPlaceholder(c.Background),
			Placeholder: true,
		}
	}

	refs, err := c.Host.ScrollContainers(ctx, region)
	if err != nil {
		logger.Debugf("section %q: scroll container query failed: %v", region.ID, err)
		refs = []ElementRef{region.Ref}
	}

	var capture Capture
	err = WithStyleOverrides(ctx, c.Host, refs, c.overrides(), func(ctx context.Context) error {
		if err := c.Host.Settle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debugf("section %q: settle failed: %v", region.ID, err)
		}
		if err := c.sleep(ctx, c.SettleDelay); err != nil {
			return err
		}

		img, err := c.Host.Rasterize(ctx, region, RasterOptions{
			Scale:      c.scale(),
			Background: c.background(),
		})
		if err != nil {
			return err
		}
		if img == nil || img.Bounds().Empty() {
			return NewError(KindInternal, "rasterize returned an empty bitmap", nil)
		}
		capture = Capture{RegionID: region.ID, Image: img}
		return nil
	})
	if err != nil {
		logger.Errorf("section %q: capture failed: %v", region.ID, err)
		return errorCapture(region, c.Background, err)
	}

	logger.Debugf("section %q: captured %dx%d", region.ID, capture.Image.Bounds().Dx(), capture.Image.Bounds().Dy())
	return capture
}

func errorCapture(region Region, background color.Color, err error) Capture {
	return Capture{
		RegionID:    region.ID,
		Image:       ErrorPlaceholder(region.ID, background),
		Placeholder: true,
		Err:         err,
	}
}

func (c *Capturer) scale() float64 {
	if c.Scale <= 0 {
		return DefaultScale
	}
	return c.Scale
}

func (c *Capturer) background() color.Color {
	if c.Background == nil {
		return white
	}
	return c.Background
}

func (c *Capturer) overrides() StyleOverrides {
	if c.Overrides == nil {
		return ExpandedStyles
	}
	return c.Overrides
}

func (c *Capturer) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (c *Capturer) logger() Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}
