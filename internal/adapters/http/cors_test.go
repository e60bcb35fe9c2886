package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/developmentseed/stac-tiler/internal/config"
)

func TestCORSPolicyAllows(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		origin   string
		want     bool
	}{
		{
			name:     "exact match",
			patterns: []string{"https://example.com"},
			origin:   "https://example.com",
			want:     true,
		},
		{
			name:     "exact mismatch",
			patterns: []string{"https://example.com"},
			origin:   "https://other.com",
			want:     false,
		},
		{
			name:     "wildcard matches subdomain",
			patterns: []string{"*.example.com"},
			origin:   "https://maps.example.com",
			want:     true,
		},
		{
			name:     "wildcard matches nested subdomain",
			patterns: []string{"*.example.com"},
			origin:   "https://a.b.example.com",
			want:     true,
		},
		{
			name:     "wildcard does not match bare domain",
			patterns: []string{"*.example.com"},
			origin:   "https://example.com",
			want:     false,
		},
		{
			name:     "wildcard does not match suffix lookalike",
			patterns: []string{"*.example.com"},
			origin:   "https://evilexample.com",
			want:     false,
		},
		{
			name:     "wildcard with port",
			patterns: []string{"*.example.com"},
			origin:   "https://maps.example.com:8443",
			want:     true,
		},
		{
			name:     "mixed patterns",
			patterns: []string{"https://localhost:3000", "*.example.com"},
			origin:   "https://localhost:3000",
			want:     true,
		},
		{
			name:     "no patterns",
			patterns: nil,
			origin:   "https://example.com",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newCORSPolicy(tt.patterns)
			if got := p.allows(tt.origin); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestOriginHost(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com:8080", "example.com"},
		{"http://example.com/path", "example.com"},
		{"example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := originHost(tt.origin); got != tt.want {
			t.Errorf("originHost(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func testServerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCORSMiddleware(t *testing.T) {
	s := NewServer(
		config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			CORS: config.CORSConfig{AllowedOrigins: []string{"https://maps.test"}},
		},
		config.ReaderConfig{},
		Deps{
			Logger: testServerLogger(),
		},
	)

	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin gets headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://maps.test")
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://maps.test" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin gets no headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.test")
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/health", nil)
		req.Header.Set("Origin", "https://maps.test")
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
	})
}
