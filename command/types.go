package command

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// RunExport captures every section of a page into a single artifact.
type RunExport struct {
	Request export.PageExport
	Result  *export.Result
}

func (RunExport) Type() string { return "snapshot:export" }

func (msg RunExport) Validate() error {
	page := msg.Request.Page
	hasURL := strings.TrimSpace(page.URL) != ""
	if !hasURL && len(page.HTML) == 0 {
		return errors.New("page url or html is required", errors.CategoryValidation).
			WithTextCode("PAGE_REQUIRED")
	}
	if hasURL && len(page.HTML) > 0 {
		return errors.New("page url and html are mutually exclusive", errors.CategoryValidation).
			WithTextCode("PAGE_AMBIGUOUS")
	}
	if _, err := export.ResolveOptions(msg.Request.Options); err != nil {
		return export.AsGoError(err)
	}
	return nil
}
