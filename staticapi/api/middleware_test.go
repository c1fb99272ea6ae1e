package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestCORSMiddleware(t *testing.T) {
	testCases := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
	}{
		{"wildcard", []string{"*"}, "http://a.test", "*"},
		{"listed origin", []string{"http://a.test", " http://b.test"}, "http://b.test", "http://b.test"},
		{"unlisted origin", []string{"http://a.test"}, "http://evil.test", ""},
		{"no origins configured", nil, "http://a.test", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := corsMiddleware(okHandler(), tc.allowed)
			req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("expected allow-origin %q, got %q", tc.wantOrigin, got)
			}
			if rec.Code != http.StatusTeapot {
				t.Errorf("expected request to reach the handler, got %d", rec.Code)
			}
		})
	}

	t.Run("preflight short-circuits", func(t *testing.T) {
		h := corsMiddleware(okHandler(), []string{"*"})
		req := httptest.NewRequest(http.MethodOptions, "/api/widgets/1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("expected allow-methods header")
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := requestLogger(logger, okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/api/widgets/3", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request" || entry["method"] != "DELETE" || entry["path"] != "/api/widgets/3" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry["status"])
	}
}
