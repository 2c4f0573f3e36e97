package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
)

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return serr.New(err, http.StatusBadRequest, "invalid json")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleErr maps err to a response. Service errors carry their own status;
// persistence failures mean the change lives only in memory.
func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *serr.ServiceError
	var pe *state.PersistError
	switch {
	case errors.As(err, &se):
		level := slog.LevelWarn
		if se.StatusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []any{"error", err, "method", r.Method, "url", r.URL.String(), "status", se.StatusCode}
		for k, v := range se.Env {
			attrs = append(attrs, k, v)
		}
		slog.Log(r.Context(), level, "request error", attrs...)
		writeError(w, se.StatusCode, se.Msg)
	case errors.As(err, &pe):
		slog.Error("persist failed", "key", pe.Key, "error", pe.Err, "method", r.Method, "url", r.URL.String())
		writeError(w, http.StatusInternalServerError, "changes may not have been saved")
	default:
		slog.Error("request error", "error", err, "method", r.Method, "url", r.URL.String(), "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
