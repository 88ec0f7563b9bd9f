// Package session turns verified magic-link claims into an authenticated
// cookie session and gates access to role-scoped route groups.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/magiclink"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/utilities"
)

// ErrNoSession is returned by Resolve for every failure mode: missing cookie,
// bad signature, expired token, malformed claims. Expired sessions behave
// identically to absent ones.
var ErrNoSession = errors.New("no valid session")

const minSecretLen = 32

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID string         `json:"userId"`
	Email  string         `json:"email"`
	Name   string         `json:"name"`
	Role   magiclink.Role `json:"role"`
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	// Secret signs session cookies; required, no default.
	Secret []byte
	// TTL governs session lifetime. Sessions outlive the one-time link
	// (default 12 hours vs the link's 15 minutes).
	TTL        time.Duration
	CookieName string
	// Secure marks the cookie HTTPS-only; enable everywhere except local dev.
	Secure bool
	Issuer string
}

// Manager creates, resolves and destroys cookie sessions. Safe for concurrent
// use after construction.
type Manager struct {
	config Config
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewManager(cfg Config, logger *zap.SugaredLogger) (*Manager, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("session: signing secret must be at least %d bytes", minSecretLen)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "corpsite_session"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "corpsite-auth"
	}
	return &Manager{config: cfg, logger: logger, now: time.Now}, nil
}

// Create signs a session token for sess and sets it as an HttpOnly cookie.
func (m *Manager) Create(w http.ResponseWriter, sess Session) error {
	if sess.UserID == "" || sess.Email == "" || !sess.Role.Valid() {
		return errors.New("session: incomplete session claims")
	}

	now := m.now()
	expires := now.Add(m.config.TTL)
	claims := sessionClaims{
		Email: sess.Email,
		Name:  sess.Name,
		Role:  string(sess.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        utilities.NewKSUID(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return fmt.Errorf("session: sign token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.config.Secure,
	})
	return nil
}

// Resolve extracts the session from the request cookie. Fails closed: any
// resolution failure is ErrNoSession, never a partially-trusted session.
func (m *Manager) Resolve(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.config.Secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.config.Issuer),
	)
	if err != nil || !parsed.Valid {
		m.logger.Debugw("session rejected", "err", err)
		return nil, ErrNoSession
	}

	role, err := magiclink.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" || claims.Email == "" {
		m.logger.Debugw("session rejected", "err", "incomplete claims")
		return nil, ErrNoSession
	}
	return &Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   role,
	}, nil
}

// Destroy overwrites the session cookie with an expired one.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.config.Secure,
	})
}
