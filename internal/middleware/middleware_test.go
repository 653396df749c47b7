package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]string

func (s stubValidator) ValidateJWT(token string) (string, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return "", errors.New("bad token")
}

func echoUsername() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUsername(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(stubValidator{"good": "alice"}, "trips_session")(echoUsername())

	tests := []struct {
		name     string
		setup    func(*http.Request)
		status   int
		body     string
		location string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "trips_session", Value: "good"}) }, http.StatusOK, "alice", ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "alice", ""},
		{"no credentials", func(*http.Request) {}, http.StatusSeeOther, "", LoginPath},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "trips_session", Value: "bad"}) }, http.StatusSeeOther, "", LoginPath},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized, "", ""},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token good") }, http.StatusUnauthorized, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trips-page", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestGetUsernameEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", GetUsername(req.Context()))
	assert.Equal(t, "bob", GetUsername(WithUsername(req.Context(), "bob")))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:2222").Code)

	limited := send("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1111").Code)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "1", retryAfter(5))
	assert.Equal(t, "2", retryAfter(0.5))
	assert.Equal(t, "60", retryAfter(0))
}
