package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/evalhub/internal/observability"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		status int
	}{
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong scheme", "secret", "Basic secret", http.StatusUnauthorized},
		{"empty key", "secret", "Bearer   ", http.StatusUnauthorized},
		{"wrong key", "secret", "Bearer other", http.StatusUnauthorized},
		{"no key configured", "", "Bearer anything", http.StatusUnauthorized},
		{"valid key", "secret", "Bearer secret", http.StatusOK},
		{"scheme is case-insensitive", "secret", "bearer secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			Auth(tt.key)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Contains(t, rec.Body.String(), `"instance":"/v1/x"`)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string

	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	t.Run("propagates client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, "abc-123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
	})
}

func TestMaxBody(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})

	t.Run("small body passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		MaxBody(8, nil)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc")))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "abc", rec.Body.String())
	})

	t.Run("oversized body returns 413 and is recorded", func(t *testing.T) {
		recorder := &countingBodyRecorder{}
		rec := httptest.NewRecorder()
		MaxBody(8, recorder)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, 1, recorder.n)
	})

	t.Run("oversized body of unknown length returns 413", func(t *testing.T) {
		recorder := &countingBodyRecorder{}
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
		req.ContentLength = -1

		rec := httptest.NewRecorder()
		MaxBody(8, recorder)(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, 1, recorder.n)
	})

	t.Run("small body of unknown length is replayed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("abc")))
		req.ContentLength = -1

		rec := httptest.NewRecorder()
		MaxBody(8, nil)(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "abc", rec.Body.String())
	})

	t.Run("zero disables the limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		MaxBody(0, nil)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

type countingBodyRecorder struct{ n int }

func (c *countingBodyRecorder) RecordRequestBodyTooLarge(context.Context) { c.n++ }

type recordedRequest struct {
	route, statusClass string
}

type fakeAPIMetrics struct {
	requests []recordedRequest
}

func (f *fakeAPIMetrics) RecordRequest(_ context.Context, _, route, statusClass string, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{route: route, statusClass: statusClass})
}

func (f *fakeAPIMetrics) RecordRequestBodyTooLarge(context.Context) {}

func TestMetrics_usesRoutePattern(t *testing.T) {
	metrics := &fakeAPIMetrics{}

	router := chi.NewRouter()
	router.Use(Metrics(metrics))
	router.Get("/v1/courses/{courseId}/review", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/courses/c-42/review", nil))

	require.Len(t, metrics.requests, 1)
	assert.Equal(t, "/v1/courses/{courseId}/review", metrics.requests[0].route)
	assert.Equal(t, "4xx", metrics.requests[0].statusClass)
}

func TestLogging_levelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	failing := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	Logging(logger)(failing).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/x", nil))

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "status=502")
	assert.Contains(t, out, "path=/v1/x")
}
