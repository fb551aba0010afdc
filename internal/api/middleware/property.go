package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// PropertyIDKey is the context key for the GA4 property id supplied by the caller.
const PropertyIDKey contextKey = "property_id"

// PropertyExtractor reads the GA4 property id from the X-Property-Id header,
// then the propertyId query parameter. Absent ids stay empty so the
// orchestrator can apply its configured default.
func PropertyExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pid := strings.TrimSpace(r.Header.Get("X-Property-Id"))
		if pid == "" {
			pid = strings.TrimSpace(r.URL.Query().Get("propertyId"))
		}
		if pid == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), PropertyIDKey, pid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPropertyID retrieves the property id from the request context, or "".
func GetPropertyID(ctx context.Context) string {
	if v, ok := ctx.Value(PropertyIDKey).(string); ok {
		return v
	}
	return ""
}
