package exportapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-snapshot/export"
)

// DefaultBasePath is the mount point when none is configured.
const DefaultBasePath = "/exports"

// Config configures the shared export API controller.
type Config struct {
	Service        export.Service
	BasePath       string
	Logger         export.Logger
	RequestDecoder RequestDecoder
	// AllowURLs permits exports of remote pages; inline HTML is always allowed.
	AllowURLs bool
}

// Controller exposes export API handlers for multiple transports.
type Controller struct {
	service        export.Service
	basePath       string
	logger         export.Logger
	requestDecoder RequestDecoder
	allowURLs      bool
}

// NewController creates a shared export API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}
	decoder := cfg.RequestDecoder
	if decoder == nil {
		decoder = JSONRequestDecoder{}
	}
	return &Controller{
		service:        cfg.Service,
		basePath:       basePath,
		logger:         logger,
		requestDecoder: decoder,
		allowURLs:      cfg.AllowURLs,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes export endpoints using the shared controller.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, export.NewError(export.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, export.NewError(export.KindInternal, "request is nil", nil))
		return
	}
	path := req.Path()
	if path != c.basePath && !strings.HasPrefix(path, c.basePath+"/") {
		writeNotFound(res)
		return
	}

	pathSuffix := strings.Trim(strings.TrimPrefix(path, c.basePath), "/")
	parts := []string{}
	if pathSuffix != "" {
		parts = strings.Split(pathSuffix, "/")
	}

	switch req.Method() {
	case http.MethodPost:
		if len(parts) != 0 {
			writeNotFound(res)
			return
		}
		c.handlePost(req, res)
	case http.MethodGet:
		switch {
		case len(parts) == 0:
			c.handleList(req, res)
		case len(parts) == 1:
			c.handleStatus(req, res, parts[0])
		case len(parts) == 2 && parts[1] == "download":
			c.handleDownload(req, res, parts[0])
		default:
			writeNotFound(res)
		}
	default:
		res.SetHeader("Allow", "GET,POST")
		res.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Controller) handlePost(req Request, res Response) {
	if c.service == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export service not configured", nil))
		return
	}
	decoded, err := c.requestDecoder.Decode(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	if decoded.Page.URL != "" && !c.allowURLs {
		WriteError(res, export.NewError(export.KindValidation, "remote page urls are disabled", nil))
		return
	}

	started := time.Now()
	result, err := c.service.ExportPage(req.Context(), decoded)
	if err != nil {
		c.logger.Errorf("export %q failed: %v", decoded.Title, err)
		WriteError(res, err)
		return
	}
	c.logger.Infof("export %s: %s in %s", result.ID, result.Filename, time.Since(started))

	res.SetHeader("Location", c.statusURL(result.ID))
	writeJSON(res, http.StatusCreated, result)
}

func (c *Controller) handleList(req Request, res Response) {
	if c.service == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export service not configured", nil))
		return
	}
	filter, err := parseFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	records, err := c.service.History(req.Context(), filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, records)
}

func (c *Controller) handleStatus(req Request, res Response, exportID string) {
	if c.service == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export service not configured", nil))
		return
	}
	record, err := c.service.Status(req.Context(), exportID)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, record)
}

func (c *Controller) handleDownload(req Request, res Response, exportID string) {
	if c.service == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export service not configured", nil))
		return
	}
	reader, meta, err := c.service.Download(req.Context(), exportID)
	if err != nil {
		WriteError(res, err)
		return
	}
	defer reader.Close()

	setDownloadHeaders(res, exportID, meta)
	res.WriteHeader(http.StatusOK)
	if _, err := io.Copy(responseWriter{res: res}, reader); err != nil {
		c.logger.Errorf("export %s: download write failed: %v", exportID, err)
	}
}

func (c *Controller) statusURL(exportID string) string {
	return fmt.Sprintf("%s/%s", c.basePath, exportID)
}

func writeNotFound(res Response) {
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusNotFound)
	_, _ = res.Write([]byte("404 page not found\n"))
}

// WriteError writes err as a JSON error body with a mapped status code.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := export.AsGoError(err)
	status := statusForError(ge)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	writeJSON(res, status, payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

// StatusForError maps an error to its HTTP status code.
func StatusForError(err error) int {
	return statusForError(export.AsGoError(err))
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.TextCode == "not_implemented" {
		return http.StatusNotImplemented
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryConflict:
		return http.StatusConflict
	case errorslib.CategoryOperation:
		if err.TextCode == "canceled" {
			return http.StatusConflict
		}
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseFilter(req Request) (export.RunFilter, error) {
	filter := export.RunFilter{
		State: export.RunState(req.Query("state")),
	}
	if since := req.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return export.RunFilter{}, export.NewError(export.KindValidation, "invalid since timestamp", err)
		}
		filter.Since = ts
	}
	if until := req.Query("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return export.RunFilter{}, export.NewError(export.KindValidation, "invalid until timestamp", err)
		}
		filter.Until = ts
	}
	if limit := req.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return export.RunFilter{}, export.NewError(export.KindValidation, "invalid limit", err)
		}
		filter.Limit = n
	}
	return filter, nil
}

func sanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "export"
	}
	return name
}

func setDownloadHeaders(res Response, exportID string, meta export.ArtifactMeta) {
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(meta.Filename)))
	res.SetHeader("X-Export-Id", exportID)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
}

type responseWriter struct {
	res Response
}

func (w responseWriter) Write(p []byte) (int, error) {
	return w.res.Write(p)
}
