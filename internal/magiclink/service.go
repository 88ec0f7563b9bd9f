// Package magiclink issues and verifies the signed, time-bounded tokens
// embedded in sign-in links. Tokens are self-contained: no server-side record
// of an issued token exists, so validity is purely signature plus expiry.
package magiclink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/pkg/utilities"
)

// ErrInvalidToken is the single failure result of Verify. Signature mismatch,
// malformed input and expiry all map to it so callers cannot build an oracle
// out of the distinction; the actual cause is logged at debug level only.
var ErrInvalidToken = errors.New("invalid or expired token")

const minSecretLen = 32

type Config struct {
	// Secret signs and verifies tokens. Startup must fail when it is absent
	// or shorter than 32 bytes; there is no default.
	Secret []byte
	// TTL is the validity window of an issued link (default 15 minutes).
	TTL    time.Duration
	Issuer string
}

// Claims is the payload carried inside a sign-in token. UserID rides in the
// registered subject claim.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the opaque account identifier bound into the token.
func (c *Claims) UserID() string { return c.Subject }

// Service mints and validates sign-in tokens. Configure once at startup and
// treat as immutable; all methods are safe for concurrent use.
type Service struct {
	config Config
	logger *zap.SugaredLogger
	now    func() time.Time
}

func New(cfg Config, logger *zap.SugaredLogger) (*Service, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("magiclink: signing secret must be at least %d bytes", minSecretLen)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "corpsite-auth"
	}
	return &Service{config: cfg, logger: logger, now: time.Now}, nil
}

// Issue mints a signed token binding email, role and account ID for one
// validity window. Email is lowercase-normalized before signing. Repeated
// calls yield distinct tokens (fresh iat and jti).
func (s *Service) Issue(email string, role Role, userID string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("magiclink: empty email")
	}
	if !role.Valid() {
		return "", fmt.Errorf("magiclink: invalid role %q", role)
	}
	if userID == "" {
		return "", errors.New("magiclink: empty user id")
	}

	now := s.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			ID:        utilities.NewKSUID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("magiclink: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token, checks its signature and expiry, and returns the
// embedded claims. Every failure mode returns ErrInvalidToken.
//
// Tokens are single-use in intent but not enforced: there is no consumption
// ledger, so a token verifies any number of times inside its window. The
// short TTL bounds the exposure; see DESIGN.md for the open question.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.config.Secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.config.Issuer),
	)
	if err != nil || !parsed.Valid {
		s.logger.Debugw("token rejected", "err", err)
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || claims.Subject == "" || !claims.Role.Valid() {
		s.logger.Debugw("token rejected", "err", "incomplete claims")
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerificationURL composes the link a recipient visits to redeem a token.
// Pure string composition; the token is query-escaped.
func (s *Service) VerificationURL(token, baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("magiclink: parse base url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/auth/verify-token"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TTL exposes the configured validity window (for mail copy).
func (s *Service) TTL() time.Duration { return s.config.TTL }
