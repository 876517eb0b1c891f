package core

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrBadCredential is returned when the account exists but the password does
// not match. It is deliberately a distinct value from ErrAccountNotFound; the
// HTTP layer decides whether to surface them as one message or two.
var ErrBadCredential = errors.New("wrong password")

// Result is the tagged outcome handed to the view layer: either a redirect or
// a named view with data. Exactly one of the two shapes is populated.
type Result struct {
	Redirect string
	View     string
	Data     map[string]any
}

// RedirectTo builds a redirect result.
func RedirectTo(path string) Result {
	return Result{Redirect: path}
}

// RenderView builds a render result.
func RenderView(view string, data map[string]any) Result {
	return Result{View: view, Data: data}
}

// AuthService orchestrates validation, account persistence, password hashing,
// and session issuance for the registration and login flows. All collaborators
// are injected; the service holds no mutable state of its own.
type AuthService struct {
	accounts AccountRepository
	hasher   *Hasher
	sessions *SessionManager
}

func NewAuthService(accounts AccountRepository, hasher *Hasher, sessions *SessionManager) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher, sessions: sessions}
}

// Register validates the submitted fields, persists a new account with a
// hashed password, and opens an authenticated session. The step order matters:
// the session is created last, so a request cancelled after the account insert
// leaves a valid state (the user can still log in later).
func (s *AuthService) Register(ctx context.Context, values map[string]Value) (string, error) {
	if err := SignupSchema.Validate(values); err != nil {
		return "", err
	}
	name := values["name"].Scalar
	email := values["email"].Scalar
	password := values["password"].Scalar

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	account := &Account{Name: name, Email: email, PasswordHash: hash}
	if err := s.accounts.Create(ctx, account); err != nil {
		return "", err
	}
	log.Printf("registered account email=%s", email)

	token, err := s.sessions.Create(ctx, name)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Login validates the submitted fields, looks up the account, verifies the
// password, and opens an authenticated session. A session is only ever created
// after the credential check succeeds.
func (s *AuthService) Login(ctx context.Context, values map[string]Value) (string, error) {
	if err := LoginSchema.Validate(values); err != nil {
		return "", err
	}
	email := values["email"].Scalar
	password := values["password"].Scalar

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return "", fmt.Errorf("%w: %s", ErrBadCredential, email)
	}

	token, err := s.sessions.Create(ctx, account.Name)
	if err != nil {
		return "", err
	}
	return token, nil
}

// LookupByName is the diagnostic path demonstrating the validation gate: the
// schema check runs before the store is touched, so a structured "user" value
// never becomes a query. Returns the structured-value error without querying.
func (s *AuthService) LookupByName(ctx context.Context, values map[string]Value) ([]Account, error) {
	if err := UsernameQuerySchema.Validate(values); err != nil {
		if errors.Is(err, ErrInjectionAttempt) {
			log.Printf("injection attempt blocked: %v", err)
		}
		return nil, err
	}
	return s.accounts.FindByName(ctx, values["user"].Scalar)
}

// Sessions exposes the session manager for the HTTP layer's load/destroy and
// authorization gate.
func (s *AuthService) Sessions() *SessionManager {
	return s.sessions
}
