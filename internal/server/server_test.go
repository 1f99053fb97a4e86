package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	SessionID string          `json:"session_id"`
}

func newTestServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := session.NewRegistry(nil, logger)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	services := &svcctx.Services{
		Pipeline: pipeline.New(pipeline.DefaultOptions(), registry, logger),
		Sessions: registry,
		Prompts:  prompts.NewResolver(logger),
		Logger:   logger,
	}
	srv, err := New(Config{Services: services, Version: "test", Logger: logger})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, registry
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func seedSession(t *testing.T, registry *session.Registry) *session.Session {
	t.Helper()
	sess, err := registry.Create("/tmp/doc.pdf", model.DocMeta{Title: "Doc", Pages: 1})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sess.SetRecords([]*model.PageRecord{
		{Page: 1, Width: 612, Height: 792, Runs: []model.UnifiedRun{{Text: "Hello", Page: 1}}},
	})
	return sess
}

func TestRootAndHealth(t *testing.T) {
	srv, registry := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("GET / = %d %s", rec.Code, rec.Body.String())
	}
	var info struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	json.Unmarshal(env.Data, &info)
	if info.Service != "pdf2typst" || info.Version != "test" {
		t.Errorf("service info = %+v", info)
	}

	seedSession(t, registry)
	_, env = doRequest(t, srv, http.MethodGet, "/health", nil)
	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	json.Unmarshal(env.Data, &health)
	if health.Status != "ok" || health.Sessions != 1 {
		t.Errorf("health = %+v", health)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, registry := newTestServer(t)
	sess := seedSession(t, registry)

	t.Run("list", func(t *testing.T) {
		_, env := doRequest(t, srv, http.MethodGet, "/api/sessions", nil)
		var list struct {
			Count int `json:"count"`
		}
		json.Unmarshal(env.Data, &list)
		if list.Count != 1 {
			t.Errorf("count = %d, want 1", list.Count)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec, env := doRequest(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, nil)
		if rec.Code != http.StatusOK || env.SessionID != sess.ID {
			t.Errorf("GET session = %d session_id=%q", rec.Code, env.SessionID)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec, env := doRequest(t, srv, http.MethodGet, "/api/sessions/nope", nil)
		if rec.Code != http.StatusNotFound || env.Success {
			t.Errorf("missing session = %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("page text", func(t *testing.T) {
		rec, env := doRequest(t, srv, http.MethodGet, "/api/sessions/"+sess.ID+"/page/1/text", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("page text = %d %s", rec.Code, rec.Body.String())
		}
		var snap struct {
			Runs []model.UnifiedRun `json:"runs"`
		}
		json.Unmarshal(env.Data, &snap)
		if len(snap.Runs) != 1 || snap.Runs[0].Text != "Hello" {
			t.Errorf("runs = %+v", snap.Runs)
		}
	})

	t.Run("page image missing", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/sessions/"+sess.ID+"/page/1/image", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("missing image = %d", rec.Code)
		}
	})

	t.Run("page image", func(t *testing.T) {
		sess.SetPageImage(1, []byte{0x89, 'P', 'N', 'G'})
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/sessions/"+sess.ID+"/page/1/image", nil)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Errorf("image = %d %q", rec.Code, rec.Header().Get("Content-Type"))
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete = %d", rec.Code)
		}
		rec, _ = doRequest(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("double delete = %d", rec.Code)
		}
	})
}

func TestConvertValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing path", map[string]string{}, http.StatusBadRequest},
		{"unknown field", map[string]string{"bogus": "x"}, http.StatusBadRequest},
		{"nonexistent pdf", map[string]string{"pdf_path": "/nonexistent/x.pdf"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, srv, http.MethodPost, "/api/convert", tt.body)
			if rec.Code != tt.code || env.Success {
				t.Errorf("convert = %d success=%v, want %d", rec.Code, env.Success, tt.code)
			}
		})
	}
}

func TestPromptEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/prompts/"+prompts.KeyGenerateTypst, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get prompt = %d %s", rec.Code, rec.Body.String())
	}
	var resolved prompts.ResolvedPrompt
	json.Unmarshal(env.Data, &resolved)
	if resolved.Key != prompts.KeyGenerateTypst || resolved.Text == "" {
		t.Errorf("resolved = %+v", resolved)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/prompts/unknown.key", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown prompt = %d", rec.Code)
	}

	_, env = doRequest(t, srv, http.MethodGet, "/api/prompts", nil)
	var list struct {
		Prompts []prompts.EmbeddedPrompt `json:"prompts"`
	}
	json.Unmarshal(env.Data, &list)
	if len(list.Prompts) != 3 {
		t.Errorf("prompt list = %d entries", len(list.Prompts))
	}
}

func TestDownloadRejectsNonTypst(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/download?path=/etc/passwd", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("download /etc/passwd = %d, want 400", rec.Code)
	}
	rec, _ = doRequest(t, srv, http.MethodGet, "/api/download", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("download without path = %d, want 400", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
