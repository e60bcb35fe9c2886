package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"strings"
)

// corsPolicy answers origin checks for the tile API. Patterns from the
// configuration are split once at construction into exact origins and
// wildcard host suffixes ("*.example.com" becomes ".example.com").
type corsPolicy struct {
	exact     map[string]struct{}
	wildcards []string
}

func newCORSPolicy(origins []string) *corsPolicy {
	p := &corsPolicy{exact: make(map[string]struct{})}
	for _, o := range origins {
		if suffix, ok := strings.CutPrefix(o, "*."); ok {
			p.wildcards = append(p.wildcards, "."+suffix)
			continue
		}
		p.exact[o] = struct{}{}
	}
	return p
}

// allows reports whether the request origin matches the policy. A
// wildcard suffix matches subdomains only, never the bare domain.
func (p *corsPolicy) allows(origin string) bool {
	if _, ok := p.exact[origin]; ok {
		return true
	}
	if len(p.wildcards) == 0 {
		return false
	}

	host := originHost(origin)
	for _, suffix := range p.wildcards {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// corsMiddleware sets CORS headers for allowed origins. Map clients load
// tiles cross-origin, so the surface is read-only: GET plus preflight.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.cors.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "86400")
			h.Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originHost strips the scheme, port, and any path from an origin value.
func originHost(origin string) string {
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, ":/"); idx != -1 {
		host = host[:idx]
	}
	return host
}
