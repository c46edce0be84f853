package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/audit"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type fakeEvents struct {
	gotSeq   int64
	gotLimit int
}

func (f *fakeEvents) Since(_ context.Context, seq int64, limit int) ([]audit.Entry, error) {
	f.gotSeq, f.gotLimit = seq, limit
	return []audit.Entry{{Seq: seq + 1, Type: "attempt.submitted", Key: "a1", DataJSON: `{}`}}, nil
}

func auditRouter(ev EventReader) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := authmw.WithSubject(req.Context(), req.Header.Get("X-User"))
			ctx = rbac.WithRole(ctx, req.Header.Get("X-Role"))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	MountAudit(r, ev)
	return r
}

func TestAuditEventsRoute(t *testing.T) {
	ev := &fakeEvents{}
	h := auditRouter(ev)

	rec := do(t, h, http.MethodGet, "/audit/events?after=41&limit=10", "", "root", "admin")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if ev.gotSeq != 41 || ev.gotLimit != 10 {
		t.Fatalf("reader saw seq=%d limit=%d", ev.gotSeq, ev.gotLimit)
	}
	var got []audit.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].Seq != 42 {
		t.Fatalf("body %s: %v", rec.Body, err)
	}

	do(t, h, http.MethodGet, "/audit/events?limit=100000", "", "root", "admin")
	if ev.gotSeq != 0 || ev.gotLimit != maxAuditPage {
		t.Fatalf("defaults: seq=%d limit=%d", ev.gotSeq, ev.gotLimit)
	}

	if rec := do(t, h, http.MethodGet, "/audit/events?after=-3", "", "root", "admin"); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative after: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/audit/events", "", "u1", "student"); rec.Code != http.StatusForbidden {
		t.Fatalf("student: status %d", rec.Code)
	}
}
