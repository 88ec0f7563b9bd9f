package session

import (
	"sort"
	"strings"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/magiclink"
)

// Rule maps a route-group prefix to the role it requires and the login page
// an unauthenticated visitor is sent to. A Public rule carves an exception
// out of a broader protected prefix (the login pages themselves).
type Rule struct {
	Prefix    string
	Role      magiclink.Role
	LoginPath string
	Public    bool
}

// Policy is the static route-protection table, evaluated per request by
// longest-prefix match. It is configuration, not a runtime entity: build it
// once at startup.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from rules, ordered longest prefix first so Match
// can return the first hit.
func NewPolicy(rules []Rule) Policy {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return Policy{rules: sorted}
}

// DefaultPolicy protects the admin area and both portal areas.
func DefaultPolicy() Policy {
	return NewPolicy([]Rule{
		{Prefix: "/admin/login", Public: true},
		{Prefix: "/portal/login", Public: true},
		{Prefix: "/admin/", Role: magiclink.RoleAdmin, LoginPath: "/admin/login"},
		{Prefix: "/portal/investor/", Role: magiclink.RoleShareholder, LoginPath: "/portal/login"},
		{Prefix: "/portal/institutional/", Role: magiclink.RoleInstitutional, LoginPath: "/portal/login"},
	})
}

// Match returns the longest-prefix rule covering path, if any.
func (p Policy) Match(path string) (Rule, bool) {
	for _, rule := range p.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}
