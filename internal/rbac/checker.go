package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions for a role policy. Patterns are either
// exact ("attempt:save"), prefix wildcards ("attempt:*") or "*".
type Checker struct {
	exact    map[string]map[string]struct{}
	prefixes map[string][]string
}

// NewChecker compiles rp; nil means the default RolePermissions.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	c := &Checker{
		exact:    make(map[string]map[string]struct{}, len(rp)),
		prefixes: make(map[string][]string, len(rp)),
	}
	for role, perms := range rp {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			if strings.HasSuffix(p, "*") {
				c.prefixes[role] = append(c.prefixes[role], strings.TrimSuffix(p, "*"))
				continue
			}
			set[p] = struct{}{}
		}
		c.exact[role] = set
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	if _, ok := c.exact[role][perm]; ok {
		return true
	}
	for _, prefix := range c.prefixes[role] {
		if strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func (c *Checker) All(role string, perms ...string) bool {
	for _, p := range perms {
		if !c.Has(role, p) {
			return false
		}
	}
	return len(perms) > 0
}

// ---- role in context ----

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	r, _ := ctx.Value(roleKey{}).(string)
	return r
}
