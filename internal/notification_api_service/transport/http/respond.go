package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, logger *slog.Logger, message string, status int) {
	if status >= http.StatusInternalServerError {
		logger.Error(message)
	}
	writeJSON(w, status, errorResponse{Error: message})
}
