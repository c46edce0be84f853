package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type errorBody struct {
	Error *quiz.Error `json:"error"`
}

var statusByCode = map[string]int{
	quiz.ErrNotFound.Code:             http.StatusNotFound,
	quiz.ErrBankNotAvailable.Code:     http.StatusUnprocessableEntity,
	quiz.ErrNoQuestions.Code:          http.StatusUnprocessableEntity,
	quiz.ErrMaxAttemptsReached.Code:   http.StatusForbidden,
	quiz.ErrAttemptInProgress.Code:    http.StatusConflict,
	quiz.ErrAttemptNotInProgress.Code: http.StatusConflict,
	quiz.ErrAttemptTimedOut.Code:      http.StatusConflict,
	quiz.ErrAttemptCompleted.Code:     http.StatusConflict,
	quiz.ErrAttemptNotCompleted.Code:  http.StatusConflict,
	quiz.ErrAttemptContended.Code:     http.StatusConflict,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: &quiz.Error{Code: "BAD_REQUEST", Message: msg}})
}

// writeError maps domain errors onto statuses. Anything else is logged and
// reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *quiz.Error
	if errors.As(err, &qe) {
		status, ok := statusByCode[qe.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: qe})
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()), "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: &quiz.Error{Code: "INTERNAL", Message: "internal error"}})
}
