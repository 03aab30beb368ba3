package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"
)

// fakeHost is an in-memory live document. Rasterized bitmaps have the measured size
// multiplied by the raster scale.
type fakeHost struct {
	mu sync.Mutex

	regions    []Region
	regionsErr error
	sizes      map[ElementRef]Size
	measureErr map[ElementRef]error
	rasterErr  map[ElementRef]error
	containers map[ElementRef][]ElementRef
	inline     map[ElementRef]map[string]string

	// styled records the inline style of each rasterized region at rasterize time.
	styled map[ElementRef]map[string]string

	regionsStarted chan struct{}
	regionsRelease chan struct{}

	rasterized []string
	settles    int
	restores   int
}

func newFakeHost(heights ...float64) *fakeHost {
	host := &fakeHost{
		sizes:      map[ElementRef]Size{},
		measureErr: map[ElementRef]error{},
		rasterErr:  map[ElementRef]error{},
		containers: map[ElementRef][]ElementRef{},
		inline:     map[ElementRef]map[string]string{},
		styled:     map[ElementRef]map[string]string{},
	}
	for i, h := range heights {
		id := string(rune('a' + i))
		ref := ElementRef("ref-" + id)
		host.regions = append(host.regions, Region{ID: id, Ref: ref})
		width := 300.0
		if h == 0 {
			width = 0
		}
		host.sizes[ref] = Size{Width: width, Height: h, ScrollWidth: width, ScrollHeight: h}
	}
	return host
}

func (h *fakeHost) Regions(ctx context.Context) ([]Region, error) {
	if h.regionsStarted != nil {
		close(h.regionsStarted)
	}
	if h.regionsRelease != nil {
		select {
		case <-h.regionsRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.regionsErr != nil {
		return nil, h.regionsErr
	}
	return append([]Region(nil), h.regions...), nil
}

func (h *fakeHost) Measure(ctx context.Context, region Region) (Size, error) {
	_ = ctx
	if err := h.measureErr[region.Ref]; err != nil {
		return Size{}, err
	}
	return h.sizes[region.Ref], nil
}

func (h *fakeHost) ScrollContainers(ctx context.Context, region Region) ([]ElementRef, error) {
	_ = ctx
	refs := []ElementRef{region.Ref}
	return append(refs, h.containers[region.Ref]...), nil
}

func (h *fakeHost) SnapshotStyles(ctx context.Context, refs []ElementRef, props []string) ([]StyleSnapshot, error) {
	_ = ctx
	h.mu.Lock()
	defer h.mu.Unlock()
	snapshots := make([]StyleSnapshot, 0, len(refs))
	for _, ref := range refs {
		snap := StyleSnapshot{Ref: ref, Properties: map[string]string{}, Priorities: map[string]string{}}
		for _, prop := range props {
			snap.Properties[prop] = h.inline[ref][prop]
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (h *fakeHost) ApplyStyles(ctx context.Context, refs []ElementRef, overrides StyleOverrides) error {
	_ = ctx
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ref := range refs {
		if h.inline[ref] == nil {
			h.inline[ref] = map[string]string{}
		}
		for prop, value := range overrides {
			h.inline[ref][prop] = value
		}
	}
	return nil
}

func (h *fakeHost) RestoreStyles(ctx context.Context, snapshots []StyleSnapshot) error {
	_ = ctx
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restores++
	for _, snap := range snapshots {
		for prop, value := range snap.Properties {
			if value == "" {
				delete(h.inline[snap.Ref], prop)
				continue
			}
			h.inline[snap.Ref][prop] = value
		}
	}
	return nil
}

func (h *fakeHost) Settle(ctx context.Context) error {
	h.mu.Lock()
	h.settles++
	h.mu.Unlock()
	return ctx.Err()
}

func (h *fakeHost) Rasterize(ctx context.Context, region Region, opts RasterOptions) (image.Image, error) {
	_ = ctx
	h.mu.Lock()
	h.rasterized = append(h.rasterized, region.ID)
	current := map[string]string{}
	for prop, value := range h.inline[region.Ref] {
		current[prop] = value
	}
	h.styled[region.Ref] = current
	h.mu.Unlock()

	if err := h.rasterErr[region.Ref]; err != nil {
		return nil, err
	}
	size := h.sizes[region.Ref]
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(size.ScrollWidth * scale)
	ht := int(size.ScrollHeight * scale)
	img := image.NewRGBA(image.Rect(0, 0, w, ht))
	for i := range img.Pix {
		img.Pix[i] = 0x20
	}
	return img, nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	_ = d
	return ctx.Err()
}

func testRunner(host *fakeHost) *Runner {
	runner := NewRunner()
	runner.Tracker = NewMemoryTracker()
	runner.Sleep = noSleep
	runner.Capture.Scale = 1
	runner.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	runner.Paginator = PaginatorFunc(func(ctx context.Context, composite Composite, opts PaginateOptions) (Document, error) {
		_ = ctx
		pages := len(composite.Positions)
		if opts.Continuous {
			pages = 1
		}
		return Document{Bytes: []byte("%PDF-stub"), Pages: pages}, nil
	})
	return runner
}

var errRaster = errors.New("raster boom")

func isWhite(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff && a == 0xffff
}
