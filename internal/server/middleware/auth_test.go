package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// testTokenValidator maps opaque tokens to subjects.
type testTokenValidator struct {
	validTokens map[string]string
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{validTokens: make(map[string]string)}
}

func (v *testTokenValidator) addValidToken(token, subject string) {
	v.validTokens[token] = subject
}

func (v *testTokenValidator) ValidateToken(tokenString string) (SubjectGetter, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}
	subject, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(subject), nil
}

type testClaims string

func (c testClaims) GetSubject() (string, error) {
	return string(c), nil
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, authHeader string) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()
	called := false
	var subject string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		subject, _ = GetSubject(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	mw(handler).ServeHTTP(w, req)
	return w, subject, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	v := newTestTokenValidator()
	v.addValidToken("valid-test-token-123", "ci-bot")

	w, subject, called := serve(t, AuthMiddleware(v), "Bearer valid-test-token-123")

	assert.True(t, called, "handler should be called")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ci-bot", subject)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	v := newTestTokenValidator()
	v.addValidToken("token123", "ci-bot")

	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "missing header", authHeader: ""},
		{name: "missing Bearer prefix", authHeader: "token123"},
		{name: "only Bearer", authHeader: "Bearer"},
		{name: "wrong scheme", authHeader: "Basic token123"},
		{name: "extra parts", authHeader: "Bearer token123 extra"},
		{name: "unknown token", authHeader: "Bearer not.a.valid.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, called := serve(t, AuthMiddleware(v), tt.authHeader)

			assert.False(t, called, "handler should not be called")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Unauthorized")
			assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	v := newTestTokenValidator()
	v.addValidToken("token123", "ci-bot")

	for _, header := range []string{"bearer token123", "BeArEr token123", "Bearer  token123"} {
		w, subject, called := serve(t, AuthMiddleware(v), header)
		assert.True(t, called, header)
		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, "ci-bot", subject, header)
	}
}

func TestAuthMiddleware_EmptySubjectRejected(t *testing.T) {
	v := newTestTokenValidator()
	v.addValidToken("anonymous", "")

	w, _, called := serve(t, AuthMiddleware(v), "Bearer anonymous")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_NilValidatorDisablesAuth(t *testing.T) {
	w, subject, called := serve(t, AuthMiddleware(nil), "")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, subject)
}

func TestGetSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	_, err := GetSubject(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject not found")

	req = req.WithContext(context.WithValue(req.Context(), SubjectKey(), "ci-bot"))
	subject, err := GetSubject(req)
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", subject)

	req = req.WithContext(context.WithValue(req.Context(), SubjectKey(), 42))
	_, err = GetSubject(req)
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.10:443", want: "192.0.2.10"},
		{name: "bare remote addr", remote: "192.0.2.10", want: "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mw := Logger(zap.New(core))

	for _, status := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusInternalServerError} {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 3)
	assert.Equal(t, zap.InfoLevel, completed[0].Level)
	assert.Equal(t, zap.WarnLevel, completed[1].Level)
	assert.Equal(t, zap.ErrorLevel, completed[2].Level)
	assert.Equal(t, int64(http.StatusTooManyRequests), completed[1].ContextMap()["status"])
	assert.Equal(t, 3, logs.FilterMessage("Request started").Len())
}
