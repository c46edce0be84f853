package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type fakeDir map[string]users.User // keyed by "username:password"

func (f fakeDir) Authenticate(_ context.Context, username, password string) (users.User, error) {
	if u, ok := f[username+":"+password]; ok {
		return u, nil
	}
	return users.User{}, users.ErrInvalidCredentials
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	a := NewAuthService("test-secret")
	dir := fakeDir{"alice:pw": {ID: "u1", Username: "alice", Role: "student"}}

	rec := httptest.NewRecorder()
	LoginHandler(a, dir)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"alice","password":"pw"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"user_id":"u1"`) {
		t.Fatalf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	LoginHandler(a, dir)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"alice","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", rec.Code)
	}
}

func TestJWTMiddlewareSetsSubjectAndRole(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("u1", "student")
	if err != nil {
		t.Fatal(err)
	}

	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || sub != "u1" || role != "student" {
		t.Fatalf("status=%d sub=%q role=%q", rec.Code, sub, role)
	}

	for name, hdr := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + mustIssue(t, NewAuthService("other"), "u1", "admin"),
	} {
		req := httptest.NewRequest(http.MethodGet, "/attempts", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status %d", name, rec.Code)
		}
	}
}

func mustIssue(t *testing.T, a *AuthService, sub, role string) string {
	t.Helper()
	tok, err := a.IssueJWT(sub, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}
