package command

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// BatchItem describes one page export in a batch file. HTMLFile is resolved
// relative to the batch file.
type BatchItem struct {
	URL        string        `json:"url,omitempty"`
	HTMLFile   string        `json:"html_file,omitempty"`
	BaseURL    string        `json:"base_url,omitempty"`
	Title      string        `json:"title,omitempty"`
	Format     export.Format `json:"format,omitempty"`
	Quality    float64       `json:"quality,omitempty"`
	Continuous bool          `json:"continuous,omitempty"`
	Filename   string        `json:"filename,omitempty"`
}

// BatchLoader loads page exports from a source.
type BatchLoader func(ctx context.Context) ([]export.PageExport, error)

// BatchExecutor runs a single page export.
type BatchExecutor interface {
	ExportPage(ctx context.Context, req export.PageExport) (export.Result, error)
}

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// BatchCommand wires CLI/Cron execution for batch page exports.
type BatchCommand struct {
	executor   BatchExecutor
	loader     BatchLoader
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	logger     export.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchLogger sets the logger used to report per-page results.
func WithBatchLogger(logger export.Logger) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.logger = logger
	}
}

// NewBatchCommand creates a batch export CLI/Cron command.
func NewBatchCommand(executor BatchExecutor, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		executor: executor,
		loader:   loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"snapshot-batch"},
			Description: "Export a list of pages",
			Group:       "snapshot",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 6 * * *"},
		logger:     export.NopLogger{},
		sleep:      waitInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CronHandler executes scheduled batch exports.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

// Run executes the batch from a file, or from the loader when from is empty.
func (c *BatchCommand) Run(ctx context.Context, from string) ([]export.Result, error) {
	return c.run(ctx, from)
}

// run stops at the first conflict or canceled context; other per-page
// failures are logged and skipped. A batch where every page failed returns
// an error wrapping each failure.
func (c *BatchCommand) run(ctx context.Context, from string) ([]export.Result, error) {
	if c == nil {
		return nil, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.executor == nil {
		return nil, errors.New("batch executor is required", errors.CategoryValidation).
			WithTextCode("EXECUTOR_REQUIRED")
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return nil, err
	}

	results := make([]export.Result, 0, len(requests))
	var failures []error
	for i, req := range requests {
		if c.limits.MaxRequests > 0 && i >= c.limits.MaxRequests {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, export.AsGoError(err)
		}
		if i > 0 && c.limits.MinInterval > 0 && c.sleep != nil {
			if err := c.sleep(ctx, c.limits.MinInterval); err != nil {
				return results, export.AsGoError(err)
			}
		}

		result, err := c.executor.ExportPage(ctx, req)
		if err != nil {
			switch export.KindFromError(err) {
			case export.KindConflict, export.KindCanceled:
				return results, err
			}
			c.logger.Errorf("batch item %d (%q) failed: %v", i, req.Title, err)
			failures = append(failures, err)
			continue
		}
		c.logger.Infof("batch item %d: %s", i, result.Filename)
		results = append(results, result)
	}

	if len(results) == 0 && len(failures) > 0 {
		return results, errors.Wrap(stderrors.Join(failures...), errors.CategoryOperation, "every batch item failed").
			WithTextCode("BATCH_ALL_FAILED").
			WithMetadata(map[string]any{"failed": len(failures)})
	}
	return results, nil
}

func waitInterval(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *BatchCommand) loadRequests(ctx context.Context, from string) ([]export.PageExport, error) {
	if strings.TrimSpace(from) != "" {
		return LoadBatchFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to a JSON list of page exports'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From)
	return err
}

// LoadBatchFile reads a JSON list of BatchItem values into page exports.
func LoadBatchFile(path string) ([]export.PageExport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var items []BatchItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}

	dir := filepath.Dir(path)
	requests := make([]export.PageExport, 0, len(items))
	for _, item := range items {
		req, err := item.pageExport(dir)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (item BatchItem) pageExport(dir string) (export.PageExport, error) {
	page := export.Page{URL: strings.TrimSpace(item.URL), BaseURL: item.BaseURL}
	if item.HTMLFile != "" {
		path := item.HTMLFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		html, err := os.ReadFile(path)
		if err != nil {
			return export.PageExport{}, errors.Wrap(err, errors.CategoryExternal, "read batch html failed").
				WithTextCode("BATCH_HTML_READ")
		}
		page.HTML = html
	}

	req := export.PageExport{
		Page:  page,
		Title: item.Title,
		Options: export.Options{
			Format:     item.Format,
			Quality:    item.Quality,
			Continuous: item.Continuous,
			Filename:   item.Filename,
		},
	}
	if err := (RunExport{Request: req}).Validate(); err != nil {
		return export.PageExport{}, err
	}
	return req, nil
}
