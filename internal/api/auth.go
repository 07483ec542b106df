package api

import (
	"crypto/subtle"
	"net/http"
)

// apiKeyHeader carries the caller's credential.
const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects requests whose X-API-Key header does not match the
// configured key. When no key is configured the endpoint is open; the server
// warns about that once at startup.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.writeError(w, http.StatusForbidden, "forbidden", "access denied")
			return
		}

		next.ServeHTTP(w, r)
	})
}
