package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// MountAttempts registers the attempt routes. The caller is expected to have
// installed JWT middleware on r.
func MountAttempts(r chi.Router, svc AttemptService) {
	r.With(rbac.Require(rbac.PermAttemptCreate)).
		Post("/banks/{bankID}/attempts", StartAttemptHandler(svc))

	r.Route("/attempts", func(ar chi.Router) {
		ar.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/", ListAttemptsHandler(svc))
		ar.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/{attemptID}", GetAttemptHandler(svc))
		ar.With(rbac.Require(rbac.PermAttemptSave)).
			Put("/{attemptID}/responses", SaveResponsesHandler(svc))
		ar.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/{attemptID}/submit", SubmitAttemptHandler(svc))
		ar.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/{attemptID}/results", ResultsHandler(svc))
	})
}
