package trackerbun

import (
	"context"
	"image"

	"github.com/goliatone/go-snapshot/export"
)

// emptyHost is a live document without sections.
type emptyHost struct{}

func (emptyHost) Regions(context.Context) ([]export.Region, error) { return nil, nil }
func (emptyHost) Measure(context.Context, export.Region) (export.Size, error) {
	return export.Size{}, nil
}
func (emptyHost) ScrollContainers(context.Context, export.Region) ([]export.ElementRef, error) {
	return nil, nil
}
func (emptyHost) SnapshotStyles(context.Context, []export.ElementRef, []string) ([]export.StyleSnapshot, error) {
	return nil, nil
}
func (emptyHost) ApplyStyles(context.Context, []export.ElementRef, export.StyleOverrides) error {
	return nil
}
func (emptyHost) RestoreStyles(context.Context, []export.StyleSnapshot) error { return nil }
func (emptyHost) Settle(context.Context) error                                { return nil }
func (emptyHost) Rasterize(context.Context, export.Region, export.RasterOptions) (image.Image, error) {
	return nil, nil
}
