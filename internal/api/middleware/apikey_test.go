package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spikeai/spike/backend/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)
	if auth.Enabled() {
		t.Error("Expected auth to be disabled when no keys are configured")
	}

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	w := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Disabled auth: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	auth := middleware.NewAPIKeyAuth([]string{"test-key-1", " test-key-2 "})
	if !auth.Enabled() {
		t.Fatal("Expected auth to be enabled")
	}
	handler := auth.Middleware(okHandler())

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer test-key-1") }},
		{"x-api-key", func(r *http.Request) { r.Header.Set("X-API-Key", "test-key-2") }},
		{"query param", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("api_key", "test-key-1")
			r.URL.RawQuery = q.Encode()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/query/stream", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestAPIKeyAuth_Rejects(t *testing.T) {
	handler := middleware.NewAPIKeyAuth([]string{"valid-key"}).Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Invalid key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Missing key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("Missing WWW-Authenticate header")
	}
}

func TestAPIKeyAuth_PublicPaths(t *testing.T) {
	handler := middleware.NewAPIKeyAuth([]string{"valid-key"}).Middleware(okHandler())

	for _, path := range []string{"/", "/health", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Public path %q: status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestAPIKeyAuth_AddRemoveKey(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)

	auth.AddKey("runtime-key")
	if !auth.Enabled() {
		t.Error("Should be enabled after AddKey")
	}

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("X-API-Key", "runtime-key")
	w := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Runtime key: status = %d, want %d", w.Code, http.StatusOK)
	}

	auth.RemoveKey("runtime-key")
	if auth.Enabled() {
		t.Error("Should be disabled after removing last key")
	}
}

func TestPropertyExtractor(t *testing.T) {
	var got string
	handler := middleware.PropertyExtractor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetPropertyID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("X-Property-Id", " 123456 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "123456" {
		t.Errorf("header property = %q, want %q", got, "123456")
	}

	req = httptest.NewRequest(http.MethodPost, "/query?propertyId=789", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "789" {
		t.Errorf("query property = %q, want %q", got, "789")
	}

	req = httptest.NewRequest(http.MethodPost, "/query", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "" {
		t.Errorf("absent property = %q, want empty", got)
	}
}

func TestLogger_PreservesFlusher(t *testing.T) {
	var flushable bool
	handler := middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !flushable {
		t.Error("Logger hides http.Flusher from handlers")
	}
}
