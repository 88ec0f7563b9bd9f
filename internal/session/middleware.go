package session

import (
	"context"
	"encoding/json"
	"net/http"
)

type sessionContextKey struct{}

// FromContext returns the session injected by Guard for the current request.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*Session)
	return sess, ok
}

// Guard returns middleware enforcing the route policy on every request.
// Per-request transitions: unauthenticated on a protected prefix redirects to
// the group's login page; an authenticated session with the wrong role is
// denied with 403; a matching role passes with the session in the request
// context. Paths outside the policy pass through untouched.
func (m *Manager) Guard(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := policy.Match(r.URL.Path)
			if !ok || rule.Public {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := m.Resolve(r)
			if err != nil {
				http.Redirect(w, r, rule.LoginPath, http.StatusSeeOther)
				return
			}
			if sess.Role != rule.Role {
				m.logger.Debugw("role mismatch",
					"path", r.URL.Path,
					"have", sess.Role,
					"want", rule.Role,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
