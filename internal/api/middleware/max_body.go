package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/formbricks/evalhub/internal/api/response"
)

// RequestBodyTooLargeRecorder counts rejected bodies. Nil when metrics are disabled.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody rejects request bodies larger than maxBytes with 413. A declared Content-Length over the
// limit is refused before the handler runs. Bodies of unknown length are capped while the handler
// reads them; the handler's response is held back and replaced by 413 if the cap was hit.
// maxBytes <= 0 disables the limit.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	reject := func(w http.ResponseWriter, r *http.Request) {
		if recorder != nil {
			recorder.RecordRequestBodyTooLarge(r.Context())
		}

		response.RespondError(w, r, http.StatusRequestEntityTooLarge, "request body exceeds maximum allowed size")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)

				return
			}

			if r.ContentLength > maxBytes {
				reject(w, r)

				return
			}

			body := &cappedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			if r.ContentLength >= 0 {
				next.ServeHTTP(w, r)

				return
			}

			held := &heldResponse{header: http.Header{}}
			next.ServeHTTP(held, r)

			if body.exceeded {
				reject(w, r)

				return
			}

			held.replay(w)
		})
	}
}

// cappedBody remembers whether the MaxBytesReader limit was hit.
type cappedBody struct {
	io.ReadCloser

	exceeded bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}

	return n, err //nolint:wrapcheck // io.EOF must reach decoders unwrapped
}

// heldResponse collects a handler's response so it can be dropped in favor of a 413.
type heldResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (h *heldResponse) Header() http.Header { return h.header }

func (h *heldResponse) WriteHeader(code int) {
	if h.status == 0 {
		h.status = code
	}
}

func (h *heldResponse) Write(p []byte) (int, error) {
	if h.status == 0 {
		h.status = http.StatusOK
	}

	return h.body.Write(p) //nolint:wrapcheck // bytes.Buffer never fails
}

func (h *heldResponse) replay(w http.ResponseWriter) {
	for k, v := range h.header {
		w.Header()[k] = v
	}

	if h.status != 0 {
		w.WriteHeader(h.status)
	}

	_, _ = h.body.WriteTo(w)
}
