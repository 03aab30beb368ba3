package query

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// ExportStatus requests a run record.
type ExportStatus struct {
	ExportID string
}

func (ExportStatus) Type() string { return "snapshot:status" }

func (msg ExportStatus) Validate() error {
	if msg.ExportID == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// ExportHistory requests run history.
type ExportHistory struct {
	Filter export.RunFilter
}

func (ExportHistory) Type() string { return "snapshot:history" }

func (msg ExportHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if !msg.Filter.Since.IsZero() && !msg.Filter.Until.IsZero() && msg.Filter.Until.Before(msg.Filter.Since) {
		return errors.New("until must not be before since", errors.CategoryValidation).
			WithTextCode("RANGE_INVALID")
	}
	return nil
}
