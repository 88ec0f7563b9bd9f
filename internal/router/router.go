package router

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/auth"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/session"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
// Auth endpoints additionally get no-store/no-referrer so tokens never land
// in caches or referrer logs.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")

			if isAuthPath(r.URL.Path) {
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Referrer-Policy", "no-referrer")
			}

			if r.TLS != nil {
				// 30 days
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAuthPath(path string) bool {
	return len(path) >= len("/api/auth/") && path[:len("/api/auth/")] == "/api/auth/"
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux
// and wraps them in the role guard plus logging/security middleware.
func RegisterRoutes(
	logger *zap.SugaredLogger,
	authHandler *auth.Handler,
	sessions *session.Manager,
	policy session.Policy,
) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth endpoints
	mux.HandleFunc("POST /api/auth/magic-link", authHandler.MagicLink)
	mux.HandleFunc("GET /api/auth/verify-token", authHandler.VerifyToken)
	mux.HandleFunc("GET /api/auth/session", authHandler.Session)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// login entry points; the pages themselves are rendered by the site,
	// this service only answers for them when hit directly
	mux.HandleFunc("GET /admin/login", loginEntry("admin"))
	mux.HandleFunc("GET /portal/login", loginEntry("portal"))

	// protected route groups; the guard middleware has already enforced the
	// role by the time these run
	mux.HandleFunc("GET /admin/", areaIndex("admin"))
	mux.HandleFunc("GET /portal/investor/", areaIndex("investor portal"))
	mux.HandleFunc("GET /portal/institutional/", areaIndex("institutional portal"))

	guarded := sessions.Guard(policy)(mux)
	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(guarded))
}

func loginEntry(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"area":    area,
			"message": "request a sign-in link via POST /api/auth/magic-link",
		})
	}
}

func areaIndex(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			// guard always runs first; treat a missing session as a wiring bug
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"area":  area,
			"user":  sess.Name,
			"email": sess.Email,
			"role":  sess.Role,
		})
	}
}
