package identity

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authgate"
)

var (
	ErrNotFound   = authgate.ErrUserNotFound
	ErrEmailTaken = authgate.ErrAccountExists
)

// User is a stored account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists users. Create assigns the ID and must fail with ErrEmailTaken when the
// normalized email is already registered.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
}

// NormalizeEmail lowercases and trims an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
