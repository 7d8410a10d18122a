package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{APIKeys: []string{" bot-key ", ""}})(ok)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"missing key", "/api/v1/accounts/u", nil, http.StatusUnauthorized},
		{"wrong key", "/api/v1/accounts/u", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"api key", "/api/v1/accounts/u", map[string]string{"X-API-Key": "bot-key"}, http.StatusOK},
		{"bearer", "/api/v1/accounts/u", map[string]string{"Authorization": "Bearer bot-key"}, http.StatusOK},
		{"health is public", "/api/v1/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, serve(h, req).Code)
		})
	}
}

func TestAuthDisabledWithoutKeys(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{})(ok)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)).Code)
}

func TestRequireAdmin(t *testing.T) {
	var seen string
	h := RequireAdmin([]string{"admin-key"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAdminID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/accounts/u/exp", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req.Header.Set("X-Admin-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, serve(h, req).Code)

	req.Header.Set("X-Admin-Key", "admin-key")
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)

	req.Header.Set("X-Admin-ID", "mod-7")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
	assert.Equal(t, "mod-7", seen)

	closed := RequireAdmin(nil)(ok)
	assert.Equal(t, http.StatusForbidden, serve(closed, req).Code)
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		Logger(r.Context()).Info("inside handler")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := serve(h, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryReturns500(t *testing.T) {
	h := RequestID(Logging(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Stop()

	r := chi.NewRouter()
	r.With(rl.Handler).Post("/accounts/{user_id}/gamble", ok)

	hit := func(user string) int {
		return serve(r, httptest.NewRequest(http.MethodPost, "/accounts/"+user+"/gamble", nil)).Code
	}

	assert.Equal(t, http.StatusOK, hit("alice"))
	assert.Equal(t, http.StatusOK, hit("alice"))
	assert.Equal(t, http.StatusTooManyRequests, hit("alice"))
	assert.Equal(t, http.StatusOK, hit("bob"), "limits are per user")
	require.Equal(t, 2, rl.Len())

	rl.idle = -time.Second
	rl.Cleanup()
	assert.Zero(t, rl.Len())
}
