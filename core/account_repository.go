package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is the persisted registration record. The password is stored only in
// its hashed form; the raw credential never reaches this layer.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

var (
	// ErrAccountNotFound is returned when no account matches the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when the email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
)

// AccountRepository defines persistence operations for accounts. It is the
// only component allowed to touch account rows; every argument it receives
// must already have passed schema validation.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByName(ctx context.Context, name string) ([]Account, error)
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewPgAccountRepository(db *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

// EnsureSchema creates the accounts table when absent. The unique index on
// email is what turns duplicate registrations into ErrDuplicateAccount.
func (r *PgAccountRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// Create inserts the account, assigning an id and creation time when unset.
// Email uniqueness is enforced by the store's unique index; a collision maps
// to ErrDuplicateAccount.
func (r *PgAccountRepository) Create(ctx context.Context, account *Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO accounts (id, name, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.db.Exec(ctx, q, account.ID, account.Name, account.Email, account.PasswordHash, account.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Email)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PgAccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM accounts WHERE email=$1`
	var a Account
	if err := r.db.QueryRow(ctx, q, email).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &a, nil
}

// FindByName returns all accounts with the given display name. It exists for
// the injection-demonstration lookup; callers must validate the name as a
// scalar first.
func (r *PgAccountRepository) FindByName(ctx context.Context, name string) ([]Account, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM accounts WHERE name=$1`
	rows, err := r.db.Query(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("find accounts by name: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
