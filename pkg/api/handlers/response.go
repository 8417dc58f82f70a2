package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"kinship-hq/sentinel/pkg/api/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.NewErrorResponse(code, msg))
}
