// Package auth orchestrates the passwordless sign-in flow: rate-limited link
// issuance, token verification and session establishment.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/magiclink"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/ratelimit"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/session"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/user/entity"
)

// ErrInvalidEmail is returned for syntactically invalid input. It is the only
// per-field detail the client ever gets.
var ErrInvalidEmail = errors.New("invalid email")

// RateLimitedError reports a denied issuance request and how long the caller
// should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Directory is the user-directory collaborator consulted at issuance and
// session establishment. Implemented by the sqlx user repo; faked in tests.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// Service wires the token issuer, rate limiter, user directory and mailer
// into the sign-in flow.
type Service struct {
	tokens      *magiclink.Service
	limiter     *ratelimit.Limiter
	directory   Directory
	mailer      Mailer
	baseURL     string
	mailTimeout time.Duration
	logger      *zap.SugaredLogger
}

func NewService(
	tokens *magiclink.Service,
	limiter *ratelimit.Limiter,
	directory Directory,
	mailer Mailer,
	baseURL string,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		tokens:      tokens,
		limiter:     limiter,
		directory:   directory,
		mailer:      mailer,
		baseURL:     baseURL,
		mailTimeout: 5 * time.Second,
		logger:      logger,
	}
}

// RequestLoginLink handles a sign-in request for email from clientKey.
//
// Only two failures are ever surfaced: ErrInvalidEmail for malformed input
// (which still charges the client's rate budget) and RateLimitedError when
// the window is exhausted. Past admission every path converges on the same
// nil result whether the account exists, is disabled, or a downstream call
// fails, so responses cannot be used to enumerate accounts. Failures past
// that point are logged server-side only.
func (s *Service) RequestLoginLink(ctx context.Context, email, clientKey string) error {
	normalized, ok := normalizeEmail(email)
	if !ok {
		s.limiter.RecordFailedAttempt(ctx, clientKey)
		return ErrInvalidEmail
	}

	res := s.limiter.Check(ctx, clientKey)
	if !res.Allowed {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	// Single accepted path from here on.
	u, err := s.directory.GetByEmail(ctx, normalized)
	if err != nil {
		s.logger.Debugw("login link: no deliverable account", "err", err)
		return nil
	}
	if u.Status != entity.StatusActive {
		s.logger.Debugw("login link: account not active", "user_id", u.ID, "status", u.Status)
		return nil
	}
	role, err := magiclink.ParseRole(u.Role)
	if err != nil {
		s.logger.Warnw("login link: account has unknown role", "user_id", u.ID, "err", err)
		return nil
	}

	token, err := s.tokens.Issue(u.Email, role, u.ID)
	if err != nil {
		s.logger.Errorw("login link: token issuance failed", "user_id", u.ID, "err", err)
		return nil
	}
	link, err := s.tokens.VerificationURL(token, s.baseURL)
	if err != nil {
		s.logger.Errorw("login link: bad base url", "err", err)
		return nil
	}

	// Fire-and-forget: delivery must not delay or shape the HTTP response.
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, s.mailTimeout)
		defer cancel()
		if err := s.mailer.SendLoginLink(sendCtx, u.Email, link, s.tokens.TTL()); err != nil {
			s.logger.Warnw("login link: delivery failed", "user_id", u.ID, "err", err)
		}
	}()
	return nil
}

// VerifyToken validates a magic-link token and returns its claims.
func (s *Service) VerifyToken(_ context.Context, token string) (*magiclink.Claims, error) {
	return s.tokens.Verify(token)
}

// EstablishSession builds the session for verified claims. The display name
// is resolved from the directory and defaults to the email local part when
// the lookup fails or the record carries none; a directory outage never
// blocks a holder of a valid token.
func (s *Service) EstablishSession(ctx context.Context, claims *magiclink.Claims) session.Session {
	sess := session.Session{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if u, err := s.directory.GetByID(ctx, claims.UserID()); err == nil {
		if u.Name != "" {
			sess.Name = u.Name
		}
		if err := s.directory.TouchLastLogin(ctx, u.ID); err != nil {
			s.logger.Debugw("touch last login failed", "user_id", u.ID, "err", err)
		}
	} else {
		s.logger.Debugw("name lookup failed, using default", "user_id", claims.UserID(), "err", err)
	}
	if sess.Name == "" {
		sess.Name, _, _ = strings.Cut(claims.Email, "@")
	}
	return sess
}

func normalizeEmail(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > 254 {
		return "", false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", false
	}
	// require a dotted domain; bare hosts are fine for RFC 5322 but not for
	// the deliverable addresses this site deals with
	_, domain, _ := strings.Cut(addr.Address, "@")
	if !strings.Contains(domain, ".") {
		return "", false
	}
	return strings.ToLower(trimmed), true
}
