package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/formbricks/evalhub/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied ids so they stay log-friendly.
const maxRequestIDLength = 128

// RequestID is the outermost middleware. It echoes a client X-Request-ID of sane length or
// mints a UUIDv7, and stores it for log records.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.Must(uuid.NewV7()).String()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}
