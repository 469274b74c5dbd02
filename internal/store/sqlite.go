package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB

	mu      sync.RWMutex
	indexes IndexRules
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer; a single connection
	// serializes access from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteStore{db: db, indexes: DefaultIndexes}, nil
}

// SetIndexes replaces the index rules consulted by Query.
func (s *SQLiteStore) SetIndexes(rules IndexRules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = rules
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewULID generates a new ULID string. Ids from one process sort in
// creation order.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Documents ---

// Set writes value at path, replacing whatever was there and removing
// every document beneath it. A nil value only removes.
func (s *SQLiteStore) Set(ctx context.Context, path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	full := strings.Join(segs, "/")

	var data []byte
	if value != nil {
		if data, err = json.Marshal(value); err != nil {
			return fmt.Errorf("encode %s: %w", full, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// '/' sorts directly before '0', so this range is every path below full.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ? OR (path >= ? AND path < ?)`,
		full, full+"/", full+"0",
	); err != nil {
		return fmt.Errorf("clear %s: %w", full, err)
	}

	if data != nil {
		parent := strings.Join(segs[:len(segs)-1], "/")
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (path, parent, key, value, updated_at) VALUES (?, ?, ?, ?, ?)`,
			full, parent, segs[len(segs)-1], string(data), time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("write %s: %w", full, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set: %w", err)
	}
	return nil
}

// Get returns the documents stored directly beneath path, ordered by key.
func (s *SQLiteStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	full := strings.Join(segs, "/")

	children, err := s.scanChildren(ctx,
		`SELECT key, value FROM documents WHERE parent = ? ORDER BY key`, full)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", full, err)
	}
	return Snapshot{Path: full, Children: children}, nil
}

// Query returns children of path ordered ascending by q.OrderByChild,
// keeping only the last q.LimitToLast. The field must be declared in the
// index rules for path or ErrIndexNotDefined is returned.
func (s *SQLiteStore) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	full := strings.Join(segs, "/")

	if err := validKey(q.OrderByChild); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	allowed := s.indexes.Allows(segs, q.OrderByChild)
	s.mu.RUnlock()
	if !allowed {
		return Snapshot{}, fmt.Errorf("%w: %q at %s", ErrIndexNotDefined, q.OrderByChild, full)
	}

	limit := q.LimitToLast
	if limit <= 0 {
		limit = -1
	}

	children, err := s.scanChildren(ctx,
		`SELECT key, value FROM (
			SELECT key, value, json_extract(value, ?) AS ord
			FROM documents WHERE parent = ?
			ORDER BY ord DESC, key DESC LIMIT ?
		) ORDER BY ord ASC, key ASC`,
		"$."+q.OrderByChild, full, limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query %s: %w", full, err)
	}
	return Snapshot{Path: full, Children: children}, nil
}

func (s *SQLiteStore) scanChildren(ctx context.Context, query string, args ...any) ([]Child, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []Child
	for rows.Next() {
		var c Child
		var value string
		if err := rows.Scan(&c.Key, &value); err != nil {
			return nil, err
		}
		c.Value = json.RawMessage(value)
		children = append(children, c)
	}
	return children, rows.Err()
}

// --- Accounts ---

func (s *SQLiteStore) CreateAccount(ctx context.Context, a *Account) error {
	if a.UID == "" {
		a.UID = NewULID()
	}
	if a.Provider == "" {
		a.Provider = "password"
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (uid, email, display_name, password_hash, provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UID, a.Email, a.DisplayName, a.PasswordHash, a.Provider, a.CreatedAt, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.Email)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

const accountColumns = `uid, email, display_name, password_hash, provider, created_at, updated_at`

func (s *SQLiteStore) GetAccount(ctx context.Context, uid string) (*Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE uid = ?`, uid)
}

func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (s *SQLiteStore) getAccount(ctx context.Context, query, arg string) (*Account, error) {
	a := &Account{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.UID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Provider, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, a *Account) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, display_name = ?, password_hash = ?, provider = ?, updated_at = ?
		WHERE uid = ?`,
		a.Email, a.DisplayName, a.PasswordHash, a.Provider, a.UpdatedAt, a.UID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.Email)
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: account %s", ErrNotFound, a.UID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
