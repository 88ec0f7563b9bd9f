package router

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/auth"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/magiclink"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/ratelimit"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/session"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/user/entity"
)

var testSecret = []byte("aaaabbbbccccddddeeeeffffgggghhhh")

type staticDirectory struct {
	users map[string]*entity.User
}

func (d staticDirectory) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (d staticDirectory) GetByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (d staticDirectory) TouchLastLogin(context.Context, string) error { return nil }

type captureMailer struct {
	links chan string
}

func (m captureMailer) SendLoginLink(_ context.Context, _, link string, _ time.Duration) error {
	m.links <- link
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, captureMailer) {
	t.Helper()
	logger := zap.NewNop().Sugar()

	tokens, err := magiclink.New(magiclink.Config{Secret: testSecret, TTL: 15 * time.Minute}, logger)
	require.NoError(t, err)
	sessions, err := session.NewManager(session.Config{Secret: testSecret, TTL: time.Hour}, logger)
	require.NoError(t, err)

	dir := staticDirectory{users: map[string]*entity.User{
		"usr_inv": {ID: "usr_inv", Email: "investor@example.com", Name: "Iris", Role: "shareholder", Status: entity.StatusActive},
	}}
	mailer := captureMailer{links: make(chan string, 1)}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(10, time.Minute), logger)
	svc := auth.NewService(tokens, limiter, dir, mailer, "http://site.test", logger)
	handler := auth.NewHandler(svc, sessions, logger)

	return RegisterRoutes(logger, handler, sessions, session.DefaultPolicy()), mailer
}

func TestFullSignInFlow(t *testing.T) {
	router, mailer := newTestRouter(t)

	// 1. request a sign-in link
	req := httptest.NewRequest(http.MethodPost, "/api/auth/magic-link", strings.NewReader(`{"email":"investor@example.com"}`))
	req.RemoteAddr = "203.0.113.5:40000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var link string
	select {
	case link = <-mailer.links:
	case <-time.After(2 * time.Second):
		t.Fatal("no link delivered")
	}

	// 2. redeem it
	u, err := url.Parse(link)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.Path+"?"+u.RawQuery, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// 3. the session opens the investor portal
	req = httptest.NewRequest(http.MethodGet, "/portal/investor/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Iris")

	// 4. but not the admin area
	req = httptest.NewRequest(http.MethodGet, "/admin/pages", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnauthenticatedRedirects(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/pages", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	// the login page itself stays reachable
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
