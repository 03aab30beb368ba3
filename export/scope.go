package export

import (
	"context"
	"errors"
	"sort"
)

// ExpandedStyles lifts clipping and scrolling constraints so the full content height renders.
var ExpandedStyles = StyleOverrides{
	"overflow":   "visible",
	"overflow-x": "visible",
	"overflow-y": "visible",
	"max-height": "none",
	"height":     "auto",
	"transform":  "none",
	"transition": "none",
}

// Properties returns the override property names in stable order.
func (o StyleOverrides) Properties() []string {
	props := make([]string, 0, len(o))
	for prop := range o {
		props = append(props, prop)
	}
	sort.Strings(props)
	return props
}

// WithStyleOverrides snapshots the inline state of refs, applies overrides, runs fn and
// restores the snapshot on every exit path. Restoration ignores ctx cancellation.
func WithStyleOverrides(ctx context.Context, host Host, refs []ElementRef, overrides StyleOverrides, fn func(ctx context.Context) error) (err error) {
	if host == nil {
		return NewError(KindInternal, "host is required", nil)
	}
	if fn == nil {
		return nil
	}
	if len(refs) == 0 || len(overrides) == 0 {
		return fn(ctx)
	}

	snapshots, err := host.SnapshotStyles(ctx, refs, overrides.Properties())
	if err != nil {
		return NewError(KindInternal, "style snapshot failed", err)
	}

	defer func() {
		restoreErr := host.RestoreStyles(context.WithoutCancel(ctx), snapshots)
		if restoreErr != nil {
			err = errors.Join(err, NewError(KindInternal, "style restore failed", restoreErr))
		}
	}()

	if err := host.ApplyStyles(ctx, refs, overrides); err != nil {
		return NewError(KindInternal, "style override failed", err)
	}

	return fn(ctx)
}
