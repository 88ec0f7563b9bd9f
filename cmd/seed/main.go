package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/user/entity"
	userrepo "github.com/atriumgroup/corpsite/service-auth-go/internal/user/repo"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/database"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/utilities"
)

// seed creates one active account per role so the sign-in flow can be
// exercised locally. Existing accounts are left untouched.
func main() {
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userrepo.NewUserRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}

	seeds := []entity.User{
		{Email: "admin@example.com", Name: "Site Admin", Role: "admin"},
		{Email: "investor@example.com", Name: "Individual Investor", Role: "shareholder"},
		{Email: "institutional@example.com", Name: "Institutional Investor", Role: "institutional"},
	}

	for _, u := range seeds {
		existing, err := users.GetByEmail(ctx, u.Email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			sugar.Fatalf("lookup %s: %v", u.Email, err)
		}
		if existing != nil {
			sugar.Infow("account exists, skipping", "email", u.Email)
			continue
		}
		u.Status = entity.StatusActive
		if err := users.Create(ctx, &u); err != nil {
			sugar.Fatalf("create %s: %v", u.Email, err)
		}
		sugar.Infow("account created", "email", u.Email, "role", u.Role, "id", u.ID)
	}

	sugar.Info("seed complete")
}
