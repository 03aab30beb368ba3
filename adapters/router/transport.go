package exportrouter

import (
	"bytes"
	"context"
	"io"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-snapshot/adapters/exportapi"
)

var (
	_ exportapi.Request  = routerRequest{}
	_ exportapi.Response = (*routerResponse)(nil)
)

type routerRequest struct {
	ctx router.Context
}

func (req routerRequest) Context() context.Context {
	if ctx := req.ctx.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (req routerRequest) Method() string { return req.ctx.Method() }

func (req routerRequest) Path() string { return req.ctx.Path() }

func (req routerRequest) Header(name string) string { return req.ctx.Header(name) }

func (req routerRequest) Query(name string) string { return req.ctx.Query(name) }

// Body copies the request body; adapters may reuse their buffers after the
// handler returns.
func (req routerRequest) Body() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(bytes.Clone(req.ctx.Body())))
}

// routerResponse collects raw writes and sends them once in flush. Send
// replaces the body on some adapters, so artifact downloads copied in chunks
// are accumulated first.
type routerResponse struct {
	ctx     router.Context
	body    bytes.Buffer
	written bool
}

func newRouterResponse(ctx router.Context) *routerResponse {
	return &routerResponse{ctx: ctx}
}

func (res *routerResponse) SetHeader(name, value string) {
	res.ctx.SetHeader(name, value)
}

func (res *routerResponse) WriteHeader(status int) {
	res.ctx.Status(status)
}

func (res *routerResponse) Write(data []byte) (int, error) {
	res.written = true
	return res.body.Write(data)
}

func (res *routerResponse) WriteJSON(status int, payload any) error {
	return res.ctx.JSON(status, payload)
}

func (res *routerResponse) flush() error {
	if !res.written {
		return nil
	}
	return res.ctx.Send(res.body.Bytes())
}
