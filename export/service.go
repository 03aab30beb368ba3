package export

import (
	"context"
	"io"
	"strings"
)

// PageExport describes an export of a live page.
type PageExport struct {
	Page    Page
	Title   string
	Options Options
}

// Service coordinates page exports across host opener, runner, tracker, and store.
type Service interface {
	ExportPage(ctx context.Context, req PageExport) (Result, error)
	Status(ctx context.Context, id string) (RunRecord, error)
	History(ctx context.Context, filter RunFilter) ([]RunRecord, error)
	Download(ctx context.Context, id string) (io.ReadCloser, ArtifactMeta, error)
}

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	Opener HostOpener
	Runner *Runner
}

type service struct {
	opener HostOpener
	runner *Runner
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) Service {
	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner()
	}
	return &service{opener: cfg.Opener, runner: runner}
}

// ExportPage opens the page, runs the export, and always closes the page.
func (s *service) ExportPage(ctx context.Context, req PageExport) (Result, error) {
	if s == nil || s.opener == nil {
		return Result{}, AsGoError(NewError(KindNotImpl, "host opener is not configured", nil))
	}
	if strings.TrimSpace(req.Page.URL) == "" && len(req.Page.HTML) == 0 {
		return Result{}, AsGoError(NewError(KindValidation, "page url or html is required", nil))
	}
	if _, err := ResolveOptions(req.Options); err != nil {
		return Result{}, AsGoError(err)
	}
	if s.runner.Busy() {
		return Result{}, AsGoError(NewError(KindConflict, "export already running", nil))
	}

	session, err := s.opener.Open(ctx, req.Page)
	if err != nil {
		return Result{}, AsGoError(NewError(KindInternal, "open page failed", err))
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			s.runner.logger().Errorf("close page: %v", closeErr)
		}
	}()

	return s.runner.Run(ctx, session, req.Title, req.Options)
}

// Status returns a run record.
func (s *service) Status(ctx context.Context, id string) (RunRecord, error) {
	tracker, err := s.tracker()
	if err != nil {
		return RunRecord{}, AsGoError(err)
	}
	if id == "" {
		return RunRecord{}, AsGoError(NewError(KindValidation, "export ID is required", nil))
	}
	record, err := tracker.Status(ctx, id)
	if err != nil {
		return RunRecord{}, AsGoError(err)
	}
	return record, nil
}

// History lists run records.
func (s *service) History(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	tracker, err := s.tracker()
	if err != nil {
		return nil, AsGoError(err)
	}
	records, err := tracker.List(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	return records, nil
}

// Download opens the artifact of a completed run.
func (s *service) Download(ctx context.Context, id string) (io.ReadCloser, ArtifactMeta, error) {
	record, err := s.Status(ctx, id)
	if err != nil {
		return nil, ArtifactMeta{}, err
	}
	if record.State != StateCompleted || record.ArtifactKey == "" {
		return nil, ArtifactMeta{}, AsGoError(NewError(KindNotFound, "export artifact not available", nil))
	}
	if s.runner.Store == nil {
		return nil, ArtifactMeta{}, AsGoError(NewError(KindNotImpl, "artifact store is not configured", nil))
	}
	rc, meta, err := s.runner.Store.Open(ctx, record.ArtifactKey)
	if err != nil {
		return nil, ArtifactMeta{}, AsGoError(err)
	}
	return rc, meta, nil
}

func (s *service) tracker() (Tracker, error) {
	if s == nil || s.runner == nil || s.runner.Tracker == nil {
		return nil, NewError(KindNotImpl, "tracker is not configured", nil)
	}
	return s.runner.Tracker, nil
}
