package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/auth"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/magiclink"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/ratelimit"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/router"
	"github.com/atriumgroup/corpsite/service-auth-go/internal/session"
	userrepo "github.com/atriumgroup/corpsite/service-auth-go/internal/user/repo"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/database"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-auth-go")

	cfg, err := auth.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	// init db
	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for convenience in repos
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(sqlxDB)
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}

	tokens, err := magiclink.New(magiclink.Config{Secret: cfg.Secret, TTL: cfg.LinkTTL}, sugar)
	if err != nil {
		sugar.Fatalf("magic link service: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		Secret:     cfg.Secret,
		TTL:        cfg.SessionTTL,
		CookieName: cfg.CookieName,
		Secure:     cfg.CookieSecure,
	}, sugar)
	if err != nil {
		sugar.Fatalf("session manager: %v", err)
	}

	// single instances count sign-in requests in memory; with REDIS_ADDR set the
	// budget is shared across replicas
	var store ratelimit.Store = ratelimit.NewMemoryStore(cfg.RateLimit, cfg.RateWindow)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("redis ping: %v", err)
		}
		defer rdb.Close()
		store = ratelimit.NewRedisStore(rdb, cfg.RateLimit, cfg.RateWindow)
		sugar.Infow("rate limiting via redis", "addr", cfg.RedisAddr)
	}
	limiter := ratelimit.NewLimiter(store, sugar)

	svc := auth.NewService(tokens, limiter, users, auth.LogMailer{Logger: sugar}, cfg.BaseURL, sugar)
	authHandler := auth.NewHandler(svc, sessions, sugar)

	sugar.Info("service is running; press Ctrl+C to stop")

	// mount http server
	handler := router.RegisterRoutes(sugar, authHandler, sessions, session.DefaultPolicy())
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8420"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if err := sqlDB.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
