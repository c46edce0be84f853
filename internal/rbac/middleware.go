package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Guard returns middleware that lets a request through when allow accepts the
// role found in its context. Requests without a role are forbidden.
func (c *Checker) Guard(allow func(c *Checker, role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !allow(c, role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require enforces a single permission under the default policy.
func Require(perm string) func(http.Handler) http.Handler {
	return defaultChecker.Guard(func(c *Checker, role string) bool { return c.Has(role, perm) })
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return defaultChecker.Guard(func(c *Checker, role string) bool { return c.Any(role, perms...) })
}
