package export

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// CaptureConfig tunes capture and composition. Delays are empirical settle times
// and may need recalibration per environment.
//
// A zero Scale, a nil Background and nil Overrides fall back to the defaults.
// Zero delays and zero Spacing are applied as given; negative values keep the
// defaults.
type CaptureConfig struct {
	Scale            float64
	SettleDelay      time.Duration
	InterRegionDelay time.Duration
	Spacing          int
	Background       color.Color
	Overrides        StyleOverrides
}

// DefaultCaptureConfig returns the default capture tuning.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Scale:            DefaultScale,
		SettleDelay:      DefaultSettleDelay,
		InterRegionDelay: DefaultInterRegionDelay,
		Spacing:          DefaultSectionSpacing,
		Background:       white,
		Overrides:        ExpandedStyles,
	}
}

// Runner orchestrates export execution. Only one run is active at a time.
type Runner struct {
	Paginator   Paginator
	Store       ArtifactStore
	Tracker     Tracker
	Logger      Logger
	Progress    ProgressFunc
	Capture     CaptureConfig
	Now         func() time.Time
	IDGenerator func() string
	Sleep       SleepFunc

	busy atomic.Bool
}

// NewRunner creates a runner with an in-memory store and default capture tuning.
func NewRunner() *Runner {
	return &Runner{
		Store:       NewMemoryStore(),
		Logger:      NopLogger{},
		Capture:     DefaultCaptureConfig(),
		Now:         time.Now,
		IDGenerator: defaultIDGenerator(),
	}
}

// Busy reports whether a run is in progress.
func (r *Runner) Busy() bool {
	return r != nil && r.busy.Load()
}

// Run captures every section of host and exports them as a single artifact.
func (r *Runner) Run(ctx context.Context, host Host, title string, opts Options) (Result, error) {
	if r == nil {
		return Result{}, AsGoError(NewError(KindInternal, "runner is nil", nil))
	}
	if host == nil {
		return Result{}, AsGoError(NewError(KindValidation, "host is required", nil))
	}
	if r.Store == nil {
		return Result{}, AsGoError(NewError(KindValidation, "artifact store is required", nil))
	}

	resolved, err := ResolveOptions(opts)
	if err != nil {
		return Result{}, AsGoError(err)
	}
	if resolved.Format == FormatPDF && r.Paginator == nil {
		return Result{}, AsGoError(NewError(KindNotImpl, "pdf paginator is not configured", nil))
	}

	if !r.busy.CompareAndSwap(false, true) {
		return Result{}, AsGoError(NewError(KindConflict, "export already running", nil))
	}
	defer r.busy.Store(false)

	run := &runState{
		runner:    r,
		id:        r.nextID(),
		title:     title,
		opts:      resolved,
		startedAt: r.now(),
	}
	if r.Tracker != nil {
		id, err := r.Tracker.Start(ctx, RunRecord{
			ID:         run.id,
			Title:      title,
			Format:     resolved.Format,
			Continuous: resolved.Continuous,
			State:      StateRunning,
			Stage:      StageDiscover,
			CreatedAt:  run.startedAt,
			StartedAt:  run.startedAt,
		})
		if err != nil {
			return Result{}, AsGoError(err)
		}
		if id != "" {
			run.id = id
		}
	}

	result, err := run.execute(ctx, host)
	if err != nil {
		run.fail(ctx, err)
		return Result{}, AsGoError(err)
	}
	return result, nil
}

type runState struct {
	runner    *Runner
	id        string
	title     string
	opts      Options
	startedAt time.Time
}

func (s *runState) execute(ctx context.Context, host Host) (Result, error) {
	r := s.runner
	logger := r.logger()

	s.report(ctx, Progress{Stage: StageDiscover})
	regions, err := host.Regions(ctx)
	if err != nil {
		return Result{}, NewError(KindInternal, "section discovery failed", err)
	}
	if len(regions) == 0 {
		return Result{}, NewError(KindNotFound, "no sections found", nil)
	}
	logger.Infof("export %s: %d sections, format=%s continuous=%t", s.id, len(regions), s.opts.Format, s.opts.Continuous)

	composite, err := r.compositor(host, func(p Progress) { s.report(ctx, p) }).Compose(ctx, regions)
	if err != nil {
		return Result{}, err
	}

	artifact, pages, err := s.encode(ctx, composite)
	if err != nil {
		return Result{}, err
	}
	s.report(ctx, Progress{Stage: StageEncode, Fraction: 0.85})

	ref, err := r.Store.Put(ctx, artifact.Filename, bytes.NewReader(artifact.Bytes), ArtifactMeta{
		ContentType: artifact.ContentType,
		Filename:    artifact.Filename,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return Result{}, NewError(KindInternal, "artifact save failed", err)
	}
	filename := artifact.Filename
	if ref.Meta.Filename != "" {
		filename = ref.Meta.Filename
	}
	s.report(ctx, Progress{Stage: StageExport, Fraction: 1})

	result := Result{
		ID:           s.id,
		Title:        s.title,
		Format:       s.opts.Format,
		Continuous:   s.opts.Continuous,
		Filename:     filename,
		Bytes:        int64(len(artifact.Bytes)),
		Pages:        pages,
		Sections:     len(composite.Positions),
		Placeholders: composite.Placeholders,
		Positions:    composite.Positions,
		Artifact:     ref,
	}

	if r.Tracker != nil {
		_ = r.Tracker.Complete(ctx, s.id, RunSummary{
			Sections:     result.Sections,
			Placeholders: result.Placeholders,
			Pages:        result.Pages,
			Bytes:        result.Bytes,
			Filename:     result.Filename,
			ArtifactKey:  ref.Key,
		})
	}
	r.emit(Progress{Stage: StageDone, Fraction: 1})
	logger.Infof("export %s: saved %s (%d bytes, %d pages) in %s", s.id, filename, result.Bytes, pages, r.now().Sub(s.startedAt))
	return result, nil
}

func (s *runState) encode(ctx context.Context, composite Composite) (Artifact, int, error) {
	r := s.runner
	filename := BuildFilename(s.title, s.opts, s.startedAt)

	if s.opts.Format == FormatPDF {
		doc, err := r.Paginator.Paginate(ctx, composite, PaginateOptions{
			Continuous: s.opts.Continuous,
			Title:      s.title,
		})
		if err != nil {
			return Artifact{}, 0, err
		}
		return Artifact{Filename: filename, ContentType: FormatPDF.ContentType(), Bytes: doc.Bytes}, doc.Pages, nil
	}

	data, err := EncodeRaster(composite.Image, s.opts.Format, s.opts.Quality)
	if err != nil {
		return Artifact{}, 0, err
	}
	return Artifact{Filename: filename, ContentType: s.opts.Format.ContentType(), Bytes: data}, 1, nil
}

func (s *runState) report(ctx context.Context, p Progress) {
	r := s.runner
	if r.Tracker != nil {
		_ = r.Tracker.Progress(ctx, s.id, p)
	}
	r.emit(p)
}

func (s *runState) fail(ctx context.Context, err error) {
	r := s.runner
	if r.Tracker != nil {
		_ = r.Tracker.Fail(context.WithoutCancel(ctx), s.id, err)
	}
	r.emit(Progress{Stage: StageFailed})
	r.logger().Errorf("export %s failed after %s: %v", s.id, r.now().Sub(s.startedAt), err)
}

func (r *Runner) compositor(host Host, progress ProgressFunc) *Compositor {
	cfg := r.Capture
	capturer := NewCapturer(host)
	capturer.Logger = r.logger()
	capturer.Sleep = r.Sleep
	if cfg.Scale > 0 {
		capturer.Scale = cfg.Scale
	}
	if cfg.SettleDelay >= 0 {
		capturer.SettleDelay = cfg.SettleDelay
	}
	if cfg.Background != nil {
		capturer.Background = cfg.Background
	}
	if cfg.Overrides != nil {
		capturer.Overrides = cfg.Overrides
	}

	compositor := NewCompositor(capturer)
	compositor.Logger = r.logger()
	compositor.Sleep = r.Sleep
	compositor.Progress = progress
	compositor.Background = capturer.Background
	if cfg.Spacing >= 0 {
		compositor.Spacing = cfg.Spacing
	}
	if cfg.InterRegionDelay >= 0 {
		compositor.InterRegionDelay = cfg.InterRegionDelay
	}
	return compositor
}

func (r *Runner) emit(p Progress) {
	if r.Progress != nil {
		r.Progress(p)
	}
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) nextID() string {
	if r.IDGenerator == nil {
		return defaultIDGenerator()()
	}
	return r.IDGenerator()
}

func (r *Runner) logger() Logger {
	if r.Logger == nil {
		return NopLogger{}
	}
	return r.Logger
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

func defaultIDGenerator() func() string {
	return func() string {
		return fmt.Sprintf("snap-%s", uuid.NewString())
	}
}
