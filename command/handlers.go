package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// RunExportHandler handles page export commands.
type RunExportHandler struct {
	Service export.Service
}

func NewRunExportHandler(svc export.Service) *RunExportHandler {
	return &RunExportHandler{Service: svc}
}

func (h *RunExportHandler) Execute(ctx context.Context, msg RunExport) error {
	if h == nil || h.Service == nil {
		return errors.New("export service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	result, err := h.Service.ExportPage(ctx, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[export.Result](ctx); res != nil {
		res.Store(result)
	}
	return nil
}
