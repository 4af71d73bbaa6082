package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rapidroute/shipbox/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError — единственное место, где виды ошибок превращаются
// в HTTP-коды.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsValidation(err) || apperrors.IsDuplicate(err):
		writeError(w, http.StatusBadRequest, rootMessage(err))
	case apperrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, rootMessage(err))
	case apperrors.IsAuth(err):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case apperrors.IsDependency(err):
		slog.Error("dependency error", "error", err.Error())
		writeError(w, http.StatusBadGateway, "Upstream service unavailable")
	default:
		slog.Error("internal error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// rootMessage отдаёт наружу текст ошибки без internal-обёрток pkg/errors.
func rootMessage(err error) string {
	return err.Error()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
