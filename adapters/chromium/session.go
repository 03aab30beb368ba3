package exportchromium

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-snapshot/export"
)

// Session is an open Chromium tab implementing export.Host.
type Session struct {
	tabCtx    context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	attribute string
	selectors []string
	logger    export.Logger
}

var _ export.HostSession = (*Session)(nil)

type regionResult struct {
	ID  string `json:"id"`
	Ref string `json:"ref"`
}

type clipResult struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type snapshotResult struct {
	Ref        string            `json:"ref"`
	Properties map[string]string `json:"properties"`
	Priorities map[string]string `json:"priorities"`
}

// Regions lists section elements in document order and tags them with refs.
func (s *Session) Regions(ctx context.Context) ([]export.Region, error) {
	var results []regionResult
	if err := s.eval(ctx, &results, regionsScript, s.attribute); err != nil {
		return nil, err
	}
	regions := make([]export.Region, 0, len(results))
	for _, r := range results {
		regions = append(regions, export.Region{ID: r.ID, Ref: export.ElementRef(r.Ref)})
	}
	return regions, nil
}

// Measure returns the live box and scroll size of the region.
func (s *Session) Measure(ctx context.Context, region export.Region) (export.Size, error) {
	var size struct {
		Width        float64 `json:"width"`
		Height       float64 `json:"height"`
		ScrollWidth  float64 `json:"scrollWidth"`
		ScrollHeight float64 `json:"scrollHeight"`
	}
	if err := s.eval(ctx, &size, measureScript, string(region.Ref)); err != nil {
		return export.Size{}, err
	}
	return export.Size{
		Width:        size.Width,
		Height:       size.Height,
		ScrollWidth:  size.ScrollWidth,
		ScrollHeight: size.ScrollHeight,
	}, nil
}

// ScrollContainers returns the region and every descendant that clips or scrolls.
func (s *Session) ScrollContainers(ctx context.Context, region export.Region) ([]export.ElementRef, error) {
	var refs []string
	if err := s.eval(ctx, &refs, containersScript, string(region.Ref), s.selectors); err != nil {
		return nil, err
	}
	out := make([]export.ElementRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, export.ElementRef(ref))
	}
	return out, nil
}

// SnapshotStyles records inline values and priorities of props on refs.
func (s *Session) SnapshotStyles(ctx context.Context, refs []export.ElementRef, props []string) ([]export.StyleSnapshot, error) {
	var results []snapshotResult
	if err := s.eval(ctx, &results, snapshotScript, refStrings(refs), props); err != nil {
		return nil, err
	}
	snapshots := make([]export.StyleSnapshot, 0, len(results))
	for _, r := range results {
		snapshots = append(snapshots, export.StyleSnapshot{
			Ref:        export.ElementRef(r.Ref),
			Properties: r.Properties,
			Priorities: r.Priorities,
		})
	}
	return snapshots, nil
}

// ApplyStyles forces overrides as important inline styles.
func (s *Session) ApplyStyles(ctx context.Context, refs []export.ElementRef, overrides export.StyleOverrides) error {
	var ok bool
	return s.eval(ctx, &ok, applyScript, refStrings(refs), map[string]string(overrides))
}

// RestoreStyles writes snapshots back; empty values are removed.
func (s *Session) RestoreStyles(ctx context.Context, snapshots []export.StyleSnapshot) error {
	payload := make([]snapshotResult, 0, len(snapshots))
	for _, snap := range snapshots {
		payload = append(payload, snapshotResult{
			Ref:        string(snap.Ref),
			Properties: snap.Properties,
			Priorities: snap.Priorities,
		})
	}
	var ok bool
	return s.eval(ctx, &ok, restoreScript, payload)
}

// Settle forces layout and waits for fonts. Unreadable stylesheets are logged and skipped.
func (s *Session) Settle(ctx context.Context) error {
	var blocked []string
	if err := s.eval(ctx, &blocked, settleScript); err != nil {
		return err
	}
	for _, href := range blocked {
		s.log().Debugf("chromium: stylesheet %s not readable, skipped", href)
	}
	return nil
}

// Rasterize screenshots the full scroll area of region at opts.Scale.
func (s *Session) Rasterize(ctx context.Context, region export.Region, opts export.RasterOptions) (image.Image, error) {
	var clip clipResult
	if err := s.eval(ctx, &clip, clipScript, string(region.Ref)); err != nil {
		return nil, err
	}
	if clip.Width <= 0 || clip.Height <= 0 {
		return nil, export.NewError(export.KindInternal, "region has no visible area", nil)
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = export.DefaultScale
	}

	var data []byte
	err := s.exec(ctx,
		emulation.SetDefaultBackgroundColorOverride().WithColor(toRGBA(opts.Background)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(&page.Viewport{
					X:      clip.X,
					Y:      clip.Y,
					Width:  clip.Width,
					Height: clip.Height,
					Scale:  scale,
				}).Do(ctx)
			return err
		}),
		emulation.SetDefaultBackgroundColorOverride(),
	)
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, export.NewError(export.KindInternal, "screenshot decode failed", err)
	}
	return img, nil
}

// Close closes the tab.
func (s *Session) Close() error {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Session) eval(ctx context.Context, out any, fn string, args ...any) error {
	expr, err := callExpression(fn, args...)
	if err != nil {
		return export.NewError(export.KindInternal, "script arguments encode failed", err)
	}
	return s.exec(ctx, chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

// exec runs actions on the tab, bounded by ctx and the session timeout.
func (s *Session) exec(ctx context.Context, actions ...chromedp.Action) error {
	if s == nil || s.tabCtx == nil {
		return export.NewError(export.KindInternal, "chromium session is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	execCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, s.timeout)
		defer cancelTimeout()
	}

	if err := chromedp.Run(execCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (s *Session) log() export.Logger {
	if s.logger == nil {
		return export.NopLogger{}
	}
	return s.logger
}

func refStrings(refs []export.ElementRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, string(ref))
	}
	return out
}

func toRGBA(c color.Color) *cdp.RGBA {
	if c == nil {
		return &cdp.RGBA{R: 255, G: 255, B: 255, A: 1}
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return &cdp.RGBA{}
	}
	// Un-premultiply into 8-bit channels.
	return &cdp.RGBA{
		R: int64(r * 0xff / a),
		G: int64(g * 0xff / a),
		B: int64(b * 0xff / a),
		A: float64(a) / 0xffff,
	}
}
