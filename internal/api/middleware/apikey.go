package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// APIKeyAuth validates API keys on query and run endpoints.
//
// When keys are configured (SPIKE_API_KEYS), requests must carry one via:
//   - Authorization: Bearer <key>
//   - X-API-Key: <key>
//   - api_key query parameter (for EventSource clients)
//
// The root, /health and /version endpoints are always public.
type APIKeyAuth struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewAPIKeyAuth creates the middleware. With no keys, auth is disabled.
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	a := &APIKeyAuth{keys: make(map[string]bool)}
	for _, key := range keys {
		// Blank entries from a trailing comma in SPIKE_API_KEYS are ignored
		if key = strings.TrimSpace(key); key != "" {
			a.keys[key] = true
		}
	}
	return a
}

// Enabled returns whether API key auth is active.
func (a *APIKeyAuth) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys) > 0
}

// AddKey adds a new API key at runtime.
func (a *APIKeyAuth) AddKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys[key] = true
}

// RemoveKey removes an API key at runtime.
func (a *APIKeyAuth) RemoveKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.keys, key)
}

// Middleware enforces API key auth on non-public paths.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No keys configured, or a public endpoint — pass through
		if !a.Enabled() || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Pull the key from header or query string
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondUnauthorized(w, "API key required. Set Authorization: Bearer <key> or X-API-Key header.")
			return
		}
		// Check against every configured key
		if !a.validateKey(apiKey) {
			respondUnauthorized(w, "Invalid API key.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *APIKeyAuth) validateKey(candidate string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	// Compare against all keys without short-circuiting (constant time)
	var ok bool
	for key := range a.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

func extractAPIKey(r *http.Request) string {
	// Authorization: Bearer <key>
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// X-API-Key header
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	// api_key query parameter (EventSource can't set headers)
	return r.URL.Query().Get("api_key")
}

func isPublicPath(path string) bool {
	// Liveness and service info stay open for load balancers
	switch path {
	case "/", "/health", "/version":
		return true
	}
	return false
}

func respondUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="spike"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
