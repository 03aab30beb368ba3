package exportrouter

import (
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-snapshot/adapters/exportapi"
	"github.com/goliatone/go-snapshot/export"
)

// Config configures the go-router adapter.
type Config = exportapi.Config

// Handler exposes export routes for go-router.
type Handler struct {
	controller *exportapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: exportapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	r.Post(base, h.Handle)
	r.Get(base, h.Handle)
	r.Get(base+"/:id", h.Handle)
	r.Get(base+"/:id/download", h.Handle)
}

// Handle runs the export controller against a go-router context.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	res := newRouterResponse(c)
	if h == nil || h.controller == nil {
		exportapi.WriteError(res, export.NewError(export.KindInternal, "handler is nil", nil))
		return res.flush()
	}
	h.controller.Serve(routerRequest{ctx: c}, res)
	return res.flush()
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return exportapi.DefaultBasePath
	}
	return h.controller.BasePath()
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
