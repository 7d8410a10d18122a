package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/pkg/apierror"
)

// AdminIDKey is the key for storing the acting admin in request context.
const AdminIDKey contextKey = "admin_id"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	APIKeys []string
}

// NewAuthMiddleware checks the bot's X-API-Key (or Bearer token).
// With no keys configured every request passes, which is only allowed
// outside production.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	keys := cleanKeys(cfg.APIKeys)
	if len(keys) == 0 {
		logging.Component("auth").Warn("No API keys configured, bot authentication disabled")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check endpoints
			if r.URL.Path == "/api/v1/health" || r.URL.Path == "/api/v1/ready" {
				next.ServeHTTP(w, r)
				return
			}
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-API-Key header."))
				return
			}
			if !isValidKey(apiKey, keys) {
				writeError(w, apierror.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards privileged routes. The caller proves admin rights with
// X-Admin-Key and names the acting admin in X-Admin-ID.
func RequireAdmin(adminKeys []string) func(http.Handler) http.Handler {
	keys := cleanKeys(adminKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				writeError(w, apierror.Forbidden("Admin access is not configured"))
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				writeError(w, apierror.Unauthorized("Admin key required"))
				return
			}
			if !isValidKey(key, keys) {
				Logger(r.Context()).WithField("path", r.URL.Path).Warn("Rejected admin key")
				writeError(w, apierror.Forbidden("Invalid admin key"))
				return
			}

			adminID := strings.TrimSpace(r.Header.Get("X-Admin-ID"))
			if adminID == "" {
				writeError(w, apierror.BadRequest("X-Admin-ID header is required"))
				return
			}

			ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminID returns the admin set by RequireAdmin, or "".
func GetAdminID(ctx context.Context) string {
	if id, ok := ctx.Value(AdminIDKey).(string); ok {
		return id
	}
	return ""
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_, _ = w.Write(err.ToJSON())
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
