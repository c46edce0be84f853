package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/audit"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const maxAuditPage = 500

// EventReader pages through the audit log in append order.
type EventReader interface {
	Since(ctx context.Context, seq int64, limit int) ([]audit.Entry, error)
}

// MountAudit registers the audit read route for reviewers.
func MountAudit(r chi.Router, ev EventReader) {
	r.With(rbac.Require(rbac.PermAuditView)).Get("/audit/events", AuditEventsHandler(ev))
}

// GET /audit/events?after=&limit=
//
// Callers tail the log by passing the last seq they saw as after.
func AuditEventsHandler(ev EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeBadRequest(w, "after must be a non-negative integer")
				return
			}
			after = v
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit == 0 || limit > maxAuditPage {
			limit = maxAuditPage
		}

		entries, err := ev.Since(r.Context(), after, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
