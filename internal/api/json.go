package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/quire/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind" example:"not_found" validate:"required"`
}

func errorBody(kind apperr.Kind, msg string) errResponse {
	return errResponse{Error: msg, Kind: kind.String()}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError reports err with the status of its kind. I/O failures are
// logged and their details withheld from the client.
func writeError(w http.ResponseWriter, op string, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindIO {
		slog.Error(op+" failed", slog.String("error", msg))
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), errorBody(kind, msg))
}
