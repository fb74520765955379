// Package response writes RFC 7807 problem responses for the plain net/http parts of the API
// (middleware and health). It reuses huma.ErrorModel so those bodies match the huma operations.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RespondError writes a problem+json body titled with the standard status text.
func RespondError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := huma.ErrorModel{
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(&problem); err != nil {
		slog.ErrorContext(r.Context(), "encode problem response", "status", status, "error", err)
	}
}

// RespondUnauthorized writes a 401 with a Bearer challenge.
func RespondUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="evalhub"`)
	RespondError(w, r, http.StatusUnauthorized, detail)
}
