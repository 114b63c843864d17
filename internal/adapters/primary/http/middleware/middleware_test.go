package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := tm.GenerateToken(userID, uuid.New(), "agent")
	require.NoError(t, err)

	var gotClaims *auth.Claims
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaims(r.Context())
		gotToken, _ = auth.BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		allowQuery bool
		header     string
		target     string
		wantStatus int
	}{
		{name: "valid header", header: "Bearer " + token, target: "/", wantStatus: http.StatusNoContent},
		{name: "missing header", target: "/", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, target: "/", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", target: "/", wantStatus: http.StatusUnauthorized},
		{name: "query token allowed", allowQuery: true, target: "/ws?token=" + token, wantStatus: http.StatusNoContent},
		{name: "query token refused", target: "/ws?token=" + token, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClaims, gotToken = nil, ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			JWTMiddleware(tm, tt.allowQuery)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				require.NotNil(t, gotClaims)
				assert.Equal(t, userID, gotClaims.UserID)
				assert.Equal(t, token, gotToken)
			} else {
				assert.Nil(t, gotClaims)
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2, TTL: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1"))
	assert.Equal(t, http.StatusOK, send("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1"))
	assert.Equal(t, http.StatusOK, send("192.0.2.2"), "other clients keep their own budget")

	rl.Stop()
	rl.Stop()
}

func TestRedactQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=secret&page=2", nil)

	got := redactQuery(r.URL.Query())

	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "token=REDACTED")
	assert.Contains(t, got, "page=2")
}

func TestRequestLogger_NamesAuthenticatedCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Format: "json", Output: &buf})

	tm := auth.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := tm.GenerateToken(userID, uuid.New(), "admin")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequestID(RequestLogger(logger)(JWTMiddleware(tm, true)(next)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "http request", record["msg"])
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, userID.String(), record["user_id"])
	assert.Equal(t, "admin", record["role"])
	assert.NotContains(t, buf.String(), token)
}
