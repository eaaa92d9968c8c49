package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(discard(), rec, "Document not found", nil, http.StatusNotFound)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "error" || body["message"] != "Document not found" {
		t.Errorf("unexpected body %v", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestFailDefaultsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWith(discard(), rec, "boom", errors.New("x"), 0, map[string]any{"errors": map[string]string{"q": "bad"}})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if _, ok := decode(t, rec)["errors"]; !ok {
		t.Error("expected extra fields in the envelope")
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(discard())(rec, httptest.NewRequest(http.MethodGet, "/health/", nil))

	body := decode(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "success" || body["message"] != "API is running" {
		t.Errorf("unexpected response %d %v", rec.Code, body)
	}
}

func TestRecoverer(t *testing.T) {
	r := NewRouter(discard(), 0)
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if decode(t, rec)["status"] != "error" {
		t.Error("expected error envelope")
	}
}

func TestValidatorDecode(t *testing.T) {
	type req struct {
		DocumentID *int   `json:"document_id" validate:"required"`
		Question   string `json:"question" validate:"required,max=10"`
		NumChunks  int    `json:"num_chunks" validate:"min=1,max=10"`
	}
	v := NewValidator()

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"valid", `{"document_id": 1, "question": "why?", "num_chunks": 3}`, nil},
		{"missing id", `{"question": "why?", "num_chunks": 3}`, []string{"document_id"}},
		{"long question", `{"document_id": 1, "question": "far too long a question", "num_chunks": 3}`, []string{"question"}},
		{"chunks out of range", `{"document_id": 1, "question": "why?", "num_chunks": 11}`, []string{"num_chunks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst req
			err := v.Decode(strings.NewReader(tt.body), &dst)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, f := range tt.fields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("expected field %q in %v", f, verr.Fields)
				}
			}
		})
	}

	var dst req
	err := v.Decode(strings.NewReader(`{not json`), &dst)
	var verr *ValidationError
	if err == nil || errors.As(err, &verr) {
		t.Errorf("malformed body must be a plain error, got %v", err)
	}
}
