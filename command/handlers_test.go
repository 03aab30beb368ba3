package command

import (
	"context"
	"io"
	"testing"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-snapshot/export"
)

type stubService struct {
	exportPage func(ctx context.Context, req export.PageExport) (export.Result, error)
	calls      []export.PageExport
}

func (s *stubService) ExportPage(ctx context.Context, req export.PageExport) (export.Result, error) {
	s.calls = append(s.calls, req)
	if s.exportPage != nil {
		return s.exportPage(ctx, req)
	}
	return export.Result{ID: "snap-1", Title: req.Title}, nil
}

func TestRunExportHandler_StoresResults(t *testing.T) {
	svc := &stubService{
		exportPage: func(ctx context.Context, req export.PageExport) (export.Result, error) {
			_ = ctx
			return export.Result{ID: "snap-9", Title: req.Title, Filename: "Q3_2024-03-09.pdf"}, nil
		},
	}

	handler := NewRunExportHandler(serviceAdapter{svc})
	var got export.Result
	result := gcmd.NewResult[export.Result]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	err := handler.Execute(ctx, RunExport{
		Request: export.PageExport{Page: export.Page{HTML: []byte("<section></section>")}, Title: "Q3"},
		Result:  &got,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.ID != "snap-9" {
		t.Fatalf("expected result pointer snap-9, got %q", got.ID)
	}

	stored, ok := result.Load()
	if !ok {
		t.Fatalf("expected context result")
	}
	if stored.Filename != "Q3_2024-03-09.pdf" {
		t.Fatalf("unexpected context result %+v", stored)
	}
}

func TestRunExport_Validate(t *testing.T) {
	cases := []struct {
		name    string
		msg     RunExport
		wantErr bool
	}{
		{name: "html", msg: RunExport{Request: export.PageExport{Page: export.Page{HTML: []byte("x")}}}},
		{name: "url", msg: RunExport{Request: export.PageExport{Page: export.Page{URL: "https://example.com"}}}},
		{name: "missing page", msg: RunExport{}, wantErr: true},
		{name: "both sources", msg: RunExport{Request: export.PageExport{Page: export.Page{URL: "https://example.com", HTML: []byte("x")}}}, wantErr: true},
		{name: "bad format", msg: RunExport{Request: export.PageExport{Page: export.Page{HTML: []byte("x")}, Options: export.Options{Format: "tiff"}}}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunExportHandler_RequiresService(t *testing.T) {
	var handler *RunExportHandler
	if err := handler.Execute(context.Background(), RunExport{}); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestRunExportHandler_RejectsInvalidMessage(t *testing.T) {
	svc := &stubService{}
	handler := NewRunExportHandler(serviceAdapter{svc})
	if err := handler.Execute(context.Background(), RunExport{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(svc.calls) != 0 {
		t.Fatalf("expected service not to be called")
	}
}

// serviceAdapter satisfies export.Service for handlers that only export.
type serviceAdapter struct {
	*stubService
}

func (serviceAdapter) Status(context.Context, string) (export.RunRecord, error) {
	return export.RunRecord{}, nil
}

func (serviceAdapter) History(context.Context, export.RunFilter) ([]export.RunRecord, error) {
	return nil, nil
}

func (serviceAdapter) Download(context.Context, string) (io.ReadCloser, export.ArtifactMeta, error) {
	return nil, export.ArtifactMeta{}, nil
}
