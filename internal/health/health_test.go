package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"flightbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func serve(checks map[string]Check, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewHealthHandler(checks, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(nil, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		want   int
	}{
		{"no dependencies", nil, http.StatusOK},
		{"all healthy", map[string]Check{"mongo": ok, "redis": ok}, http.StatusOK},
		{"one down", map[string]Check{"mongo": ok, "redis": down}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.checks, "/ready")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Dependencies) != len(tt.checks) {
				t.Errorf("dependencies = %v", resp.Dependencies)
			}
		})
	}
}
