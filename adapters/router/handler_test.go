package exportrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-snapshot/adapters/exportapi"
	exporthttp "github.com/goliatone/go-snapshot/adapters/http"
	"github.com/goliatone/go-snapshot/export"
)

type stubService struct {
	last     export.PageExport
	records  map[string]export.RunRecord
	artifact []byte
}

func (s *stubService) ExportPage(ctx context.Context, req export.PageExport) (export.Result, error) {
	_ = ctx
	s.last = req
	return export.Result{ID: "snap-1", Title: req.Title, Format: req.Options.Format, Filename: "Deck_2024-03-09_continuous.pdf", Pages: 1}, nil
}

func (s *stubService) Status(ctx context.Context, id string) (export.RunRecord, error) {
	_ = ctx
	record, ok := s.records[id]
	if !ok {
		return export.RunRecord{}, export.AsGoError(export.NewError(export.KindNotFound, "export not found", nil))
	}
	return record, nil
}

func (s *stubService) History(ctx context.Context, filter export.RunFilter) ([]export.RunRecord, error) {
	_ = ctx
	out := []export.RunRecord{}
	for _, record := range s.records {
		if filter.State == "" || record.State == filter.State {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *stubService) Download(ctx context.Context, id string) (io.ReadCloser, export.ArtifactMeta, error) {
	if _, err := s.Status(ctx, id); err != nil {
		return nil, export.ArtifactMeta{}, err
	}
	return io.NopCloser(bytes.NewReader(s.artifact)), export.ArtifactMeta{
		ContentType: "application/pdf",
		Filename:    "Deck_2024-03-09_continuous.pdf",
		Size:        int64(len(s.artifact)),
	}, nil
}

func completedService(artifact []byte) *stubService {
	return &stubService{
		records:  map[string]export.RunRecord{"snap-1": {ID: "snap-1", State: export.StateCompleted}},
		artifact: artifact,
	}
}

func TestHandler_PostExport(t *testing.T) {
	svc := &stubService{}
	handler := NewHandler(Config{Service: svc})

	body := `{"html":"<section data-section=\"a\"></section>","title":"Deck","continuous":true}`
	ctx := newTestContext(http.MethodPost, "/exports", []byte(body), nil)
	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if ctx.recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", ctx.recorder.Code, ctx.recorder.Body.String())
	}
	if !svc.last.Options.Continuous || svc.last.Title != "Deck" {
		t.Fatalf("unexpected request %+v", svc.last)
	}
	var result export.Result
	if err := json.NewDecoder(ctx.recorder.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ID != "snap-1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHandler_DownloadSendsOnce(t *testing.T) {
	// Larger than one io.Copy chunk.
	artifact := bytes.Repeat([]byte("0123456789abcdef"), 8*1024)
	handler := NewHandler(Config{Service: completedService(artifact)})

	ctx := newTestContext(http.MethodGet, "/exports/snap-1/download", nil, nil)
	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if ctx.recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.recorder.Code)
	}
	if ctx.sends != 1 {
		t.Fatalf("expected a single send, got %d", ctx.sends)
	}
	if !bytes.Equal(ctx.recorder.Body.Bytes(), artifact) {
		t.Fatalf("expected full artifact, got %d bytes", ctx.recorder.Body.Len())
	}
	if got := ctx.recorder.Header().Get("Content-Disposition"); got != `attachment; filename="Deck_2024-03-09_continuous.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestTransportParity(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		query  map[string]string
		body   string
	}{
		{name: "status", method: http.MethodGet, path: "/exports/snap-1"},
		{name: "history", method: http.MethodGet, path: "/exports", query: map[string]string{"state": "completed"}},
		{name: "download", method: http.MethodGet, path: "/exports/snap-1/download"},
		{name: "not found", method: http.MethodGet, path: "/exports/missing"},
		{name: "invalid body", method: http.MethodPost, path: "/exports", body: `{"html":"<div></div>","format":"gif"}`},
		{name: "method not allowed", method: http.MethodDelete, path: "/exports/snap-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := exportapi.Config{Service: completedService([]byte("%PDF-stub"))}

			target := tc.path
			if len(tc.query) > 0 {
				values := make([]string, 0, len(tc.query))
				for k, v := range tc.query {
					values = append(values, k+"="+v)
				}
				target += "?" + strings.Join(values, "&")
			}
			rec := httptest.NewRecorder()
			exporthttp.NewHandler(cfg).ServeHTTP(rec, httptest.NewRequest(tc.method, target, strings.NewReader(tc.body)))

			ctx := newTestContext(tc.method, tc.path, []byte(tc.body), tc.query)
			if err := NewHandler(cfg).Handle(ctx); err != nil {
				t.Fatalf("router handle: %v", err)
			}

			if rec.Code != ctx.recorder.Code {
				t.Fatalf("status mismatch: http=%d router=%d", rec.Code, ctx.recorder.Code)
			}
			for _, header := range []string{"Content-Type", "Content-Disposition", "X-Export-Id", "Allow"} {
				if rec.Header().Get(header) != ctx.recorder.Header().Get(header) {
					t.Fatalf("%s mismatch: http=%q router=%q", header, rec.Header().Get(header), ctx.recorder.Header().Get(header))
				}
			}
			if rec.Body.String() != ctx.recorder.Body.String() {
				t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), ctx.recorder.Body.String())
			}
		})
	}
}

func TestHandler_NilHandler(t *testing.T) {
	var handler *Handler
	ctx := newTestContext(http.MethodGet, "/exports", nil, nil)
	if err := handler.Handle(ctx); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ctx.recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", ctx.recorder.Code)
	}
}

func TestRegisterRoutes(t *testing.T) {
	reg := &recordingRegistrar{}
	NewHandler(Config{Service: &stubService{}, BasePath: "/api/snapshots"}).RegisterRoutes(reg)

	want := []string{
		"POST /api/snapshots",
		"GET /api/snapshots",
		"GET /api/snapshots/:id",
		"GET /api/snapshots/:id/download",
	}
	if strings.Join(reg.routes, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected routes %v", reg.routes)
	}

	NewHandler(Config{}).RegisterRoutes(struct{}{})
}

type recordingRegistrar struct {
	routes []string
}

func (r *recordingRegistrar) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	_, _ = handler, mw
	r.routes = append(r.routes, "GET "+path)
	return nil
}

func (r *recordingRegistrar) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	_, _ = handler, mw
	r.routes = append(r.routes, "POST "+path)
	return nil
}

// testContext implements the parts of router.Context the handler uses. Other
// methods panic through the nil embedded interface.
type testContext struct {
	router.Context

	method   string
	path     string
	body     []byte
	query    map[string]string
	headers  map[string]string
	recorder *httptest.ResponseRecorder
	status   int
	sends    int
}

func newTestContext(method, path string, body []byte, query map[string]string) *testContext {
	if query == nil {
		query = map[string]string{}
	}
	return &testContext{
		method:   method,
		path:     path,
		body:     body,
		query:    query,
		headers:  map[string]string{},
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Context() context.Context { return context.Background() }

func (c *testContext) Method() string { return c.method }

func (c *testContext) Path() string { return c.path }

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Header(name string) string { return c.headers[name] }

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.query[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) Status(code int) router.Context {
	c.status = code
	return c
}

func (c *testContext) Send(body []byte) error {
	c.sends++
	c.recorder.WriteHeader(c.statusOr(http.StatusOK))
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.recorder.WriteHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) statusOr(def int) int {
	if c.status == 0 {
		return def
	}
	return c.status
}
