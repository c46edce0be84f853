package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// AttemptService is the slice of quiz.Service the handlers need.
type AttemptService interface {
	StartAttempt(ctx context.Context, bankID, userID string) (quiz.AttemptState, error)
	GetAttemptState(ctx context.Context, attemptID, userID string) (quiz.AttemptState, error)
	SaveProgress(ctx context.Context, attemptID, userID string, partial map[string]json.RawMessage, elapsedSeconds int) (quiz.SaveResult, error)
	SubmitAttempt(ctx context.Context, attemptID, userID string) (quiz.AttemptResult, error)
	GetResults(ctx context.Context, attemptID, userID string) (quiz.AttemptResult, error)
	ListUserAttempts(ctx context.Context, userID, bankID string, page, pageSize int) (quiz.AttemptPage, error)
}

// POST /banks/{bankID}/attempts
func StartAttemptHandler(svc AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "bankID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.GetAttemptState(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

type saveRequest struct {
	Responses      map[string]json.RawMessage `json:"responses"`
	ElapsedSeconds int                        `json:"elapsed_seconds"`
}

// PUT /attempts/{attemptID}/responses
func SaveResponsesHandler(svc AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "bad json")
			return
		}
		if req.Responses == nil {
			writeBadRequest(w, "responses required")
			return
		}
		res, err := svc.SaveProgress(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()),
			req.Responses, req.ElapsedSeconds)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.SubmitAttempt(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts/{attemptID}/results
func ResultsHandler(svc AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResults(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts?bank_id=...&page=1&page_size=20
//
// Callers list their own attempts. Roles with attempt:view-all may pass
// user_id to list someone else's.
func ListAttemptsHandler(svc AttemptService) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID := authmw.SubjectFromContext(r.Context())
		if other := strings.TrimSpace(q.Get("user_id")); other != "" && other != userID {
			if !checker.Has(rbac.RoleFromContext(r.Context()), rbac.PermAttemptViewAll) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			userID = other
		}
		page, err := svc.ListUserAttempts(r.Context(), userID,
			strings.TrimSpace(q.Get("bank_id")),
			parseIntDefault(q.Get("page"), 1),
			parseIntDefault(q.Get("page_size"), 0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
