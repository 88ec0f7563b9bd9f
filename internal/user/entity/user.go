package entity

import "time"

// User represents an account row in the `users` table. Accounts are created
// by administrators (or the seed command); there is no self-signup and no
// password material anywhere in the schema.
type User struct {
	ID          string     `db:"id"`
	Email       string     `db:"email"`
	Name        string     `db:"name"`
	Role        string     `db:"role"`   // admin / shareholder / institutional
	Status      string     `db:"status"` // active / disabled
	LastLoginAt *time.Time `db:"last_login_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
