package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeListen(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"8080", ":8080", false},
		{":8080", ":8080", false},
		{"127.0.0.1:8080", "127.0.0.1:8080", false},
		{"", "", true},
		{"not:a:listen:addr", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeListen(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeListen(%q) error = nil, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeListen(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeListen(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	checks := map[string]Check{
		"llm":    func(context.Context) error { return nil },
		"speech": func(context.Context) error { return errors.New("connection refused") },
	}
	rec := httptest.NewRecorder()
	writeHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil), checks)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with a failing check", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("status field = %q, want degraded", body.Status)
	}
	if body.Checks["llm"] != "ok" {
		t.Fatalf("llm check = %q, want ok", body.Checks["llm"])
	}
	if body.Checks["speech"] != "connection refused" {
		t.Fatalf("speech check = %q", body.Checks["speech"])
	}
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	writeHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil), map[string]Check{
		"llm": func(context.Context) error { return nil },
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
