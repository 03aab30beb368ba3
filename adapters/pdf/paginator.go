package exportpdf

import (
	"context"
	"image"

	"github.com/goliatone/go-snapshot/export"
	"github.com/signintech/gopdf"
)

const (
	DefaultMarginMM          = 10.0
	DefaultContinuousWidthMM = 210.0
	defaultCreator           = "go-snapshot"
)

// Paginator converts composite bitmaps into PDF documents.
type Paginator struct {
	// Page is the per-section page size; it is always laid out landscape.
	Page            PageSize
	Margin          float64
	ContinuousWidth float64
	Creator         string
	Logger          export.Logger
}

// NewPaginator returns an A4 landscape paginator with 10mm margins.
func NewPaginator() *Paginator {
	return &Paginator{
		Page:            pageSizesMM["A4"].Landscape(),
		Margin:          DefaultMarginMM,
		ContinuousWidth: DefaultContinuousWidthMM,
		Creator:         defaultCreator,
		Logger:          export.NopLogger{},
	}
}

// Paginate renders the composite as per-section pages or as one continuous page.
func (p *Paginator) Paginate(ctx context.Context, composite export.Composite, opts export.PaginateOptions) (export.Document, error) {
	if p == nil {
		return export.Document{}, export.NewError(export.KindInternal, "paginator is nil", nil)
	}
	if composite.Image == nil || composite.Image.Bounds().Empty() {
		return export.Document{}, export.NewError(export.KindValidation, "composite bitmap is empty", nil)
	}
	bounds := composite.Image.Bounds()

	var layouts []PageLayout
	if opts.Continuous {
		layout, err := ContinuousLayout(bounds.Dx(), bounds.Dy(), p.continuousWidth(), p.margin())
		if err != nil {
			return export.Document{}, err
		}
		layouts = []PageLayout{layout}
	} else {
		var err error
		layouts, err = SectionLayouts(bounds.Dx(), composite.Positions, p.page(), p.margin())
		if err != nil {
			return export.Document{}, err
		}
		if len(layouts) == 0 {
			return export.Document{}, export.NewError(export.KindNotFound, "no sections to paginate", nil)
		}
	}

	first := layouts[0].Page
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitPT,
		PageSize: gopdf.Rect{W: mmToPt(first.Width), H: mmToPt(first.Height)},
	})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:   opts.Title,
		Creator: p.creator(),
	})

	for i, layout := range layouts {
		if err := ctx.Err(); err != nil {
			return export.Document{}, err
		}
		if err := p.addPage(pdf, composite.Image, layout); err != nil {
			return export.Document{}, export.NewError(export.KindInternal, "pdf page render failed", err)
		}
		p.logger().Debugf("pdf page %d/%d: section %q %.1fx%.1fmm", i+1, len(layouts), layout.Section.ID, layout.Image.W, layout.Image.H)
	}

	data, err := pdf.GetBytesPdfReturnErr()
	if err != nil {
		return export.Document{}, export.NewError(export.KindInternal, "pdf encode failed", err)
	}
	return export.Document{Bytes: data, Pages: len(layouts)}, nil
}

func (p *Paginator) addPage(pdf *gopdf.GoPdf, img *image.RGBA, layout PageLayout) error {
	bounds := img.Bounds()
	slice := img.SubImage(image.Rect(bounds.Min.X, bounds.Min.Y+layout.Section.Start, bounds.Max.X, bounds.Min.Y+layout.Section.End))

	encoded, err := export.EncodeLossless(slice)
	if err != nil {
		return err
	}
	holder, err := gopdf.ImageHolderByBytes(encoded)
	if err != nil {
		return err
	}

	pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{
		W: mmToPt(layout.Page.Width),
		H: mmToPt(layout.Page.Height),
	}})
	return pdf.ImageByHolder(holder, mmToPt(layout.Image.X), mmToPt(layout.Image.Y), &gopdf.Rect{
		W: mmToPt(layout.Image.W),
		H: mmToPt(layout.Image.H),
	})
}

func (p *Paginator) page() PageSize {
	if p.Page.Width <= 0 || p.Page.Height <= 0 {
		return pageSizesMM["A4"].Landscape()
	}
	return p.Page.Landscape()
}

func (p *Paginator) margin() float64 {
	if p.Margin < 0 {
		return DefaultMarginMM
	}
	return p.Margin
}

func (p *Paginator) continuousWidth() float64 {
	if p.ContinuousWidth <= 0 {
		return DefaultContinuousWidthMM
	}
	return p.ContinuousWidth
}

func (p *Paginator) creator() string {
	if p.Creator == "" {
		return defaultCreator
	}
	return p.Creator
}

func (p *Paginator) logger() export.Logger {
	if p.Logger == nil {
		return export.NopLogger{}
	}
	return p.Logger
}
