package core

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is the server-side record behind one authenticated client. The zero
// value is the anonymous session: not an error, just "nobody".
type Session struct {
	Authenticated bool      `json:"authenticated"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Anonymous is the session handed out for missing, expired, or malformed tokens.
var Anonymous = Session{}

// SessionStore persists session records keyed by an opaque storage key.
// Implementations are the synchronization point between concurrent requests.
type SessionStore interface {
	Put(ctx context.Context, key string, s Session, ttl time.Duration) error
	// Get returns (session, true, nil) for a live record, (zero, false, nil)
	// for a missing or store-expired one, and a non-nil error only for
	// infrastructure failure.
	Get(ctx context.Context, key string) (Session, bool, error)
	// Delete removes the record; deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// RedisSessionStore keeps session records in Redis with a per-record TTL, so
// expiry is enforced by the store rather than trusted to the client.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

const sessionKeyPrefix = "session:"

func (s *RedisSessionStore) Put(ctx context.Context, key string, sess Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, sessionKeyPrefix+key, payload, ttl).Err()
}

// Get reads with plain GET, never GETEX: loading a session must not refresh
// its TTL (expiry is absolute, fixed at creation).
func (s *RedisSessionStore) Get(ctx context.Context, key string) (Session, bool, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		// A corrupt record is treated as absent rather than fatal.
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, sessionKeyPrefix+key).Err()
}

// SessionManager owns the session lifecycle: opaque token issuance, lookup,
// and destruction. Tokens carry 256 bits of entropy and are never derived from
// user-supplied data; the store is keyed by an HMAC of the token so a leaked
// store keyspace does not yield usable cookies.
type SessionManager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(store SessionStore, cfg Config) *SessionManager {
	return &SessionManager{
		store:  store,
		secret: []byte(cfg.SessionSecret),
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

// Create allocates an authenticated session bound to the principal's display
// name, with absolute expiry now + TTL. It returns the client-facing token.
func (m *SessionManager) Create(ctx context.Context, displayName string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := m.now().UTC()
	sess := Session{
		Authenticated: true,
		Name:          displayName,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, m.storageKey(token), sess, m.ttl); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Load resolves a token to its session. Missing, expired, or malformed tokens
// resolve to Anonymous; a non-nil error means the store itself failed.
func (m *SessionManager) Load(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Anonymous, nil
	}
	sess, ok, err := m.store.Get(ctx, m.storageKey(token))
	if err != nil {
		return Anonymous, err
	}
	if !ok || m.now().After(sess.ExpiresAt) {
		return Anonymous, nil
	}
	return sess, nil
}

// Destroy removes the session behind the token. It is idempotent: destroying
// an absent session is a no-op.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, m.storageKey(token))
}

// IsAuthenticated is the authorization predicate gating protected views.
func (m *SessionManager) IsAuthenticated(sess Session) bool {
	return sess.Authenticated
}

// TTL exposes the configured session lifetime for cookie max-age.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func (m *SessionManager) storageKey(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
