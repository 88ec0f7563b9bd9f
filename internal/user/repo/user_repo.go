package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/atriumgroup/corpsite/service-auth-go/internal/user/entity"
	"github.com/atriumgroup/corpsite/service-auth-go/pkg/utilities"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email CITEXT UNIQUE NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  last_login_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account row. An ID is generated when absent.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = utilities.NewKSUID()
	}
	if u.Status == "" {
		u.Status = entity.StatusActive
	}
	const q = `INSERT INTO users (id, email, name, role, status)
	           VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, u.Role, u.Status)
	return err
}

// GetByEmail returns the account matched by email (case-insensitive due to
// citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, email, name, role, status, last_login_at, created_at, updated_at
	           FROM users WHERE email=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches an account row by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT id, email, name, role, status, last_login_at, created_at, updated_at
	           FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// TouchLastLogin records a successful sign-in.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) error {
	const q = `UPDATE users SET last_login_at=NOW(), updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// Deactivate marks an account as disabled; disabled accounts never receive
// sign-in links.
func (r *UserRepo) Deactivate(ctx context.Context, id string) error {
	const q = `UPDATE users SET status='disabled', updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
