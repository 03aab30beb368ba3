package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// ExportStatusHandler returns a single run record.
type ExportStatusHandler struct {
	Service export.Service
}

func NewExportStatusHandler(svc export.Service) *ExportStatusHandler {
	return &ExportStatusHandler{Service: svc}
}

func (h *ExportStatusHandler) Query(ctx context.Context, msg ExportStatus) (export.RunRecord, error) {
	if h == nil || h.Service == nil {
		return export.RunRecord{}, errors.New("export service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return export.RunRecord{}, err
	}
	return h.Service.Status(ctx, msg.ExportID)
}

// ExportHistoryHandler returns run history.
type ExportHistoryHandler struct {
	Service export.Service
}

func NewExportHistoryHandler(svc export.Service) *ExportHistoryHandler {
	return &ExportHistoryHandler{Service: svc}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]export.RunRecord, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("export service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return h.Service.History(ctx, msg.Filter)
}
