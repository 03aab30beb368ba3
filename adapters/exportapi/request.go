package exportapi

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/goliatone/go-snapshot/export"
)

// DefaultMaxBodyBytes bounds request bodies, including inline HTML documents.
const DefaultMaxBodyBytes int64 = 16 * 1024 * 1024

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// RequestDecoder parses a transport request into a page export.
type RequestDecoder interface {
	Decode(req Request) (export.PageExport, error)
}

// JSONRequestDecoder decodes JSON into page exports.
type JSONRequestDecoder struct {
	MaxBodyBytes int64
}

// Decode decodes a JSON request body into a page export.
func (d JSONRequestDecoder) Decode(req Request) (export.PageExport, error) {
	if req == nil {
		return export.PageExport{}, export.NewError(export.KindInternal, "request is nil", nil)
	}
	body := req.Body()
	if body == nil {
		return export.PageExport{}, export.NewError(export.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	decoder := json.NewDecoder(io.LimitReader(body, limit))
	decoder.DisallowUnknownFields()

	var payload requestPayload
	if err := decoder.Decode(&payload); err != nil {
		return export.PageExport{}, export.NewError(export.KindValidation, "invalid request payload", err)
	}

	page := export.Page{
		URL:     strings.TrimSpace(payload.URL),
		BaseURL: strings.TrimSpace(payload.BaseURL),
	}
	if payload.HTML != "" {
		page.HTML = []byte(payload.HTML)
	}
	if page.URL == "" && len(page.HTML) == 0 {
		return export.PageExport{}, export.NewError(export.KindValidation, "url or html is required", nil)
	}
	if page.URL != "" && len(page.HTML) > 0 {
		return export.PageExport{}, export.NewError(export.KindValidation, "url and html are mutually exclusive", nil)
	}

	return export.PageExport{
		Page:  page,
		Title: strings.TrimSpace(payload.Title),
		Options: export.Options{
			Format:     export.NormalizeFormat(payload.Format),
			Quality:    payload.Quality,
			Continuous: payload.Continuous,
			Filename:   payload.Filename,
		},
	}, nil
}

type requestPayload struct {
	URL        string        `json:"url,omitempty"`
	HTML       string        `json:"html,omitempty"`
	BaseURL    string        `json:"base_url,omitempty"`
	Title      string        `json:"title,omitempty"`
	Format     export.Format `json:"format,omitempty"`
	Quality    float64       `json:"quality,omitempty"`
	Continuous bool          `json:"continuous,omitempty"`
	Filename   string        `json:"filename,omitempty"`
}
