package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/ratelimit"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/session"
)

// acceptedMessage is the one body every well-formed issuance request gets,
// whether or not the account exists.
const acceptedMessage = "If an account exists for this address, a sign-in link has been sent."

// Handler exposes the HTTP endpoints of the authentication core.
type Handler struct {
	svc      *Service
	sessions *session.Manager
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// MagicLinkRequest is the request body for the issuance endpoint.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLink handles POST /api/auth/magic-link.
func (h *Handler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email"})
		return
	}

	err := h.svc.RequestLoginLink(r.Context(), req.Email, ratelimit.ClientKey(r))
	var limited *RateLimitedError
	switch {
	case errors.Is(err, ErrInvalidEmail):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email"})
	case errors.As(err, &limited):
		retry := int(limited.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		h.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "rate_limit_exceeded",
			"retryAfter": retry,
		})
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": acceptedMessage,
		})
	}
}

// VerifyToken handles GET /api/auth/verify-token. A valid token establishes
// the session cookie in the same response.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}

	claims, err := h.svc.VerifyToken(r.Context(), token)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": "invalid or expired token",
		})
		return
	}

	sess := h.svc.EstablishSession(r.Context(), claims)
	if err := h.sessions.Create(w, sess); err != nil {
		h.logger.Errorw("session creation failed", "user_id", sess.UserID, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"valid":  true,
		"email":  claims.Email,
		"role":   claims.Role,
		"userId": claims.UserID(),
	})
}

// Session handles GET /api/auth/session, returning the caller's session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
