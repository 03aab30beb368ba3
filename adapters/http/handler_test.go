package exporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-snapshot/adapters/exportapi"
	"github.com/goliatone/go-snapshot/export"
)

// stubPage is a live document with one visible section.
type stubPage struct{}

func (stubPage) Regions(context.Context) ([]export.Region, error) {
	return []export.Region{{ID: "summary", Ref: "ref-summary"}}, nil
}

func (stubPage) Measure(context.Context, export.Region) (export.Size, error) {
	return export.Size{Width: 40, Height: 20, ScrollWidth: 40, ScrollHeight: 20}, nil
}

func (stubPage) ScrollContainers(_ context.Context, region export.Region) ([]export.ElementRef, error) {
	return []export.ElementRef{region.Ref}, nil
}

func (stubPage) SnapshotStyles(_ context.Context, refs []export.ElementRef, _ []string) ([]export.StyleSnapshot, error) {
	out := make([]export.StyleSnapshot, 0, len(refs))
	for _, ref := range refs {
		out = append(out, export.StyleSnapshot{Ref: ref})
	}
	return out, nil
}

func (stubPage) ApplyStyles(context.Context, []export.ElementRef, export.StyleOverrides) error {
	return nil
}

func (stubPage) RestoreStyles(context.Context, []export.StyleSnapshot) error { return nil }

func (stubPage) Settle(ctx context.Context) error { return ctx.Err() }

func (stubPage) Rasterize(_ context.Context, _ export.Region, opts export.RasterOptions) (image.Image, error) {
	scale := int(opts.Scale)
	if scale < 1 {
		scale = 1
	}
	return image.NewRGBA(image.Rect(0, 0, 40*scale, 20*scale)), nil
}

func (stubPage) Close() error { return nil }

type stubOpener struct {
	pages []export.Page
}

func (o *stubOpener) Open(ctx context.Context, page export.Page) (export.HostSession, error) {
	_ = ctx
	o.pages = append(o.pages, page)
	return stubPage{}, nil
}

func newTestHandler(t *testing.T) (*Handler, *stubOpener) {
	t.Helper()
	runner := export.NewRunner()
	runner.Tracker = export.NewMemoryTracker()
	runner.Capture.Scale = 1
	runner.Capture.SettleDelay = 0
	runner.Capture.InterRegionDelay = 0

	opener := &stubOpener{}
	svc := export.NewService(export.ServiceConfig{Opener: opener, Runner: runner})
	return NewHandler(Config{Service: svc, BasePath: "/exports"}), opener
}

func TestHandler_ExportThenDownload(t *testing.T) {
	handler, opener := newTestHandler(t)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	body := `{"html":"<section data-section=\"summary\">hi</section>","title":"Weekly Summary","format":"png"}`
	req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(opener.pages) != 1 || !strings.Contains(string(opener.pages[0].HTML), "summary") {
		t.Fatalf("expected inline html to be opened, got %+v", opener.pages)
	}

	var result export.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(result.Filename, "Weekly_Summary_") || !strings.HasSuffix(result.Filename, ".png") {
		t.Fatalf("unexpected filename %q", result.Filename)
	}

	req = httptest.NewRequest(http.MethodGet, "/exports/"+result.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 status, got %d", rec.Code)
	}
	var record export.RunRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.State != export.StateCompleted || record.Sections != 1 {
		t.Fatalf("unexpected record %+v", record)
	}

	req = httptest.NewRequest(http.MethodGet, "/exports/"+result.ID+"/download", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), result.Filename) {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
}

func TestHandler_History(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, title := range []string{"one", "two"} {
		body := `{"html":"<div></div>","title":"` + title + `","format":"png"}`
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(body)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var records []export.RunRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected limited history, got %d records", len(records))
	}
}

func TestHandler_ValidationErrors(t *testing.T) {
	handler, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{name: "unsupported format", body: `{"html":"<div></div>","format":"gif"}`, code: "validation"},
		{name: "quality out of range", body: `{"html":"<div></div>","format":"jpeg","quality":1.5}`, code: "validation"},
		{name: "empty body", body: `{}`, code: "validation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, payload.Error.Code)
			}
		})
	}
}

func TestHandler_NilHandler(t *testing.T) {
	var handler *Handler
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestExchange_RequestAndResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/exports?state=completed&limit=5", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	ex := newExchange(rec, req)

	if ex.Method() != http.MethodGet || ex.Path() != "/exports" {
		t.Fatalf("unexpected method/path %s %s", ex.Method(), ex.Path())
	}
	if ex.Query("state") != "completed" || ex.Query("limit") != "5" || ex.Query("missing") != "" {
		t.Fatalf("unexpected query values")
	}
	if ex.Header("Accept") != "application/json" {
		t.Fatalf("unexpected header %q", ex.Header("Accept"))
	}

	ex.SetHeader("X-Export-Id", "snap-1")
	if err := ex.WriteJSON(http.StatusAccepted, map[string]string{"id": "snap-1"}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if rec.Code != http.StatusAccepted || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("X-Export-Id") != "snap-1" || !strings.Contains(rec.Body.String(), `"snap-1"`) {
		t.Fatalf("unexpected response body %q", rec.Body.String())
	}
}

func TestExchange_NilRequest(t *testing.T) {
	ex := newExchange(httptest.NewRecorder(), nil)
	if ex.Context() == nil || ex.Method() != "" || ex.Path() != "" || ex.Body() != nil {
		t.Fatalf("expected empty exchange for nil request")
	}
	if ex.Header("Accept") != "" || ex.Query("limit") != "" {
		t.Fatalf("expected empty header and query")
	}
}

func TestExchange_CapsBody(t *testing.T) {
	oversized := strings.NewReader(strings.Repeat("a", int(exportapi.DefaultMaxBodyBytes)+1))
	req := httptest.NewRequest(http.MethodPost, "/exports", oversized)
	ex := newExchange(httptest.NewRecorder(), req)

	_, err := io.ReadAll(ex.Body())
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected max bytes error, got %v", err)
	}
}
