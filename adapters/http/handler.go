package exporthttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/goliatone/go-snapshot/adapters/exportapi"
	"github.com/goliatone/go-snapshot/export"
)

// Config configures the HTTP adapter.
type Config = exportapi.Config

// Handler exposes export HTTP endpoints.
type Handler struct {
	controller *exportapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: exportapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.basePath(), h)
		r.Handle(h.basePath()+"/", h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.basePath(), h.ServeHTTP)
		r.HandleFunc(h.basePath()+"/", h.ServeHTTP)
	}
}

// ServeHTTP routes export endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	ex := newExchange(w, r)
	if h == nil || h.controller == nil {
		exportapi.WriteError(ex, export.NewError(export.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(ex, ex)
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return exportapi.DefaultBasePath
	}
	return h.controller.BasePath()
}

// exchange carries one net/http round trip as both the controller request
// and response. The query string is parsed once and the body is capped at
// exportapi.DefaultMaxBodyBytes.
type exchange struct {
	ctx    context.Context
	method string
	path   string
	header http.Header
	query  url.Values
	body   io.ReadCloser
	w      http.ResponseWriter
}

func newExchange(w http.ResponseWriter, r *http.Request) *exchange {
	ex := &exchange{ctx: context.Background(), header: http.Header{}, query: url.Values{}, w: w}
	if r == nil {
		return ex
	}
	ex.ctx = r.Context()
	ex.method = r.Method
	if r.Header != nil {
		ex.header = r.Header
	}
	if r.URL != nil {
		ex.path = r.URL.Path
		ex.query = r.URL.Query()
	}
	if r.Body != nil {
		ex.body = http.MaxBytesReader(w, r.Body, exportapi.DefaultMaxBodyBytes)
	}
	return ex
}

func (ex *exchange) Context() context.Context { return ex.ctx }
func (ex *exchange) Method() string { return ex.method }
func (ex *exchange) Path() string { return ex.path }
func (ex *exchange) Header(name string) string { return ex.header.Get(name) }
func (ex *exchange) Query(name string) string { return ex.query.Get(name) }
func (ex *exchange) Body() io.ReadCloser { return ex.body }

func (ex *exchange) SetHeader(name, value string) {
	ex.w.Header().Set(name, value)
}

func (ex *exchange) WriteHeader(status int) {
	ex.w.WriteHeader(status)
}

func (ex *exchange) Write(data []byte) (int, error) {
	return ex.w.Write(data)
}

func (ex *exchange) WriteJSON(status int, payload any) error {
	ex.w.Header().Set("Content-Type", "application/json")
	ex.w.WriteHeader(status)
	return json.NewEncoder(ex.w).Encode(payload)
}

var (
	_ exportapi.Request  = (*exchange)(nil)
	_ exportapi.Response = (*exchange)(nil)
)
