package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrIndexNotDefined = errors.New("index not defined")
	ErrAccountExists   = errors.New("account already exists")
)

// Child is one document directly beneath a collection path.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Snapshot holds the documents found beneath a path, in the order the
// read produced them.
type Snapshot struct {
	Path     string
	Children []Child
}

// Exists reports whether anything was stored beneath the path.
func (s Snapshot) Exists() bool { return len(s.Children) > 0 }

// Query selects the last LimitToLast children ordered by the value of
// field OrderByChild. A zero LimitToLast returns every child.
type Query struct {
	OrderByChild string
	LimitToLast  int
}

// Account is a locally managed identity.
type Account struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store defines the persistence interface for bugless.
type Store interface {
	// Documents
	Set(ctx context.Context, path string, value any) error
	Get(ctx context.Context, path string) (Snapshot, error)
	Query(ctx context.Context, path string, q Query) (Snapshot, error)

	// Accounts
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, uid string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccount(ctx context.Context, a *Account) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
