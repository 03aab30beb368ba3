package export

import (
	"context"
	"image"
	"image/color"
	"io"
	"time"
)

// Format is the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Options configures a single export run.
type Options struct {
	Format     Format
	Quality    float64
	Continuous bool
	Filename   string
}

// ElementRef is an opaque host handle to a live element.
type ElementRef string

// Region is an exportable section of the live document.
type Region struct {
	ID  string
	Ref ElementRef
}

// Size holds live element measurements in CSS pixels.
type Size struct {
	Width        float64
	Height       float64
	ScrollWidth  float64
	ScrollHeight float64
}

// Empty reports whether the element has no visible box.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// StyleOverrides maps CSS property names to forced values.
type StyleOverrides map[string]string

// StyleSnapshot records the prior inline values of an element.
// An empty value means the property was not set inline.
type StyleSnapshot struct {
	Ref        ElementRef
	Properties map[string]string
	Priorities map[string]string
}

// RasterOptions configures region rasterization.
type RasterOptions struct {
	Scale      float64
	Background color.Color
}

// Host exposes the live document capabilities required by the pipeline.
type Host interface {
	Regions(ctx context.Context) ([]Region, error)
	Measure(ctx context.Context, region Region) (Size, error)
	ScrollContainers(ctx context.Context, region Region) ([]ElementRef, error)
	SnapshotStyles(ctx context.Context, refs []ElementRef, props []string) ([]StyleSnapshot, error)
	ApplyStyles(ctx context.Context, refs []ElementRef, overrides StyleOverrides) error
	RestoreStyles(ctx context.Context, snapshots []StyleSnapshot) error
	Settle(ctx context.Context) error
	Rasterize(ctx context.Context, region Region, opts RasterOptions) (image.Image, error)
}

// Page identifies the live document to open.
type Page struct {
	URL     string
	HTML    []byte
	BaseURL string
}

// HostSession is an opened live document.
type HostSession interface {
	Host
	Close() error
}

// HostOpener opens live documents.
type HostOpener interface {
	Open(ctx context.Context, page Page) (HostSession, error)
}

// Capture is the raster result for one region.
type Capture struct {
	RegionID    string
	Image       image.Image
	Placeholder bool
	Err         error
}

// SectionPosition is the vertical range [Start, End) a region occupies in the composite.
type SectionPosition struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Height returns the section height in composite pixels.
func (p SectionPosition) Height() int {
	return p.End - p.Start
}

// Composite is the stitched bitmap with section bookkeeping.
type Composite struct {
	Image        *image.RGBA
	Positions    []SectionPosition
	Placeholders int
}

// PaginateOptions configures pagination.
type PaginateOptions struct {
	Continuous bool
	Title      string
}

// Document is a paginated output document.
type Document struct {
	Bytes []byte
	Pages int
}

// Paginator converts a composite into a paginated document.
type Paginator interface {
	Paginate(ctx context.Context, composite Composite, opts PaginateOptions) (Document, error)
}

// PaginatorFunc adapts a function to a Paginator.
type PaginatorFunc func(ctx context.Context, composite Composite, opts PaginateOptions) (Document, error)

func (f PaginatorFunc) Paginate(ctx context.Context, composite Composite, opts PaginateOptions) (Document, error) {
	if f == nil {
		return Document{}, NewError(KindInternal, "paginator func is nil", nil)
	}
	return f(ctx, composite, opts)
}

// Artifact is the final encoded output.
type Artifact struct {
	Filename    string
	ContentType string
	Bytes       []byte
}

// Result captures a completed export.
type Result struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Format       Format            `json:"format"`
	Continuous   bool              `json:"continuous"`
	Filename     string            `json:"filename"`
	Bytes        int64             `json:"bytes"`
	Pages        int               `json:"pages"`
	Sections     int               `json:"sections"`
	Placeholders int               `json:"placeholders"`
	Positions    []SectionPosition `json:"positions"`
	Artifact     ArtifactRef       `json:"artifact"`
}

// Stage names a pipeline phase for progress reporting.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageCapture  Stage = "capture"
	StageEncode   Stage = "encode"
	StageExport   Stage = "export"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Progress is an observational progress update.
type Progress struct {
	Stage    Stage
	Fraction float64
	Section  string
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// RunState captures run lifecycle states.
type RunState string

const (
	StateQueued    RunState = "queued"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// RunRecord captures tracker state for an export run.
type RunRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Format       Format    `json:"format"`
	Continuous   bool      `json:"continuous"`
	State        RunState  `json:"state"`
	Stage        Stage     `json:"stage,omitempty"`
	Progress     float64   `json:"progress"`
	Sections     int       `json:"sections"`
	Placeholders int       `json:"placeholders"`
	Pages        int       `json:"pages"`
	Bytes        int64     `json:"bytes"`
	Filename     string    `json:"filename,omitempty"`
	ArtifactKey  string    `json:"artifact_key,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}

// RunSummary carries completion data for a run.
type RunSummary struct {
	Sections     int
	Placeholders int
	Pages        int
	Bytes        int64
	Filename     string
	ArtifactKey  string
}

// RunFilter filters tracker lists.
type RunFilter struct {
	State RunState
	Since time.Time
	Until time.Time
	Limit int
}

// Tracker records export runs.
type Tracker interface {
	Start(ctx context.Context, record RunRecord) (string, error)
	Progress(ctx context.Context, id string, progress Progress) error
	Complete(ctx context.Context, id string, summary RunSummary) error
	Fail(ctx context.Context, id string, err error) error
	Status(ctx context.Context, id string) (RunRecord, error)
	List(ctx context.Context, filter RunFilter) ([]RunRecord, error)
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string       `json:"key"`
	Meta ArtifactMeta `json:"meta"`
}

// ArtifactStore persists export artifacts.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}
