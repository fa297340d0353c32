package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the single holder of a logged-in user's authentication
// state. All checks read from it; logout clears it as a whole.
type Session struct {
	ID       string
	Identity Identity
	Perms    PermissionSet
	Roles    RoleList

	// Aux carries request-scoped working state tied to the login, such
	// as an open point-of-sale cart. It is wiped on logout.
	Aux map[string]any

	CreatedAt time.Time
	ExpiresAt time.Time

	mu sync.RWMutex
}

// SetAux stores a named auxiliary value on the session.
func (s *Session) SetAux(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Aux == nil {
		s.Aux = make(map[string]any)
	}
	s.Aux[key] = value
}

// authenticated reports whether the session still carries an identity.
// Logout zeroes the identity, so stale pointers fail every gate check.
func (s *Session) authenticated() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Identity.ID != 0
}

// GetAux reads a named auxiliary value.
func (s *Session) GetAux(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.Aux[key]
	return v, ok
}

// sessionClaims is the JWT payload for the bearer token handed to the
// client. The token only carries the session id; everything else lives
// server-side.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager owns the session table and the login/logout lifecycle.
type Manager struct {
	verifier CredentialVerifier
	resolver PermissionSource
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a Manager. The secret signs the bearer tokens and
// must be stable across instances that share sessions.
func NewManager(verifier CredentialVerifier, resolver PermissionSource, secret []byte, opts ...ManagerOption) *Manager {
	m := &Manager{
		verifier: verifier,
		resolver: resolver,
		secret:   secret,
		ttl:      8 * time.Hour,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login verifies the credentials, resolves permissions eagerly and
// registers a new session. It returns the session and its signed
// bearer token.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, string, error) {
	id, err := m.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	perms, roles := m.resolver.Resolve(ctx, id)
	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Identity:  id,
		Perms:     perms,
		Roles:     roles,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.sign(sess)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, token, nil
}

// FromToken validates a bearer token and returns its live session.
// Tokens for sessions that were logged out, expired or created by a
// previous process instance all fail the same way.
func (m *Manager) FromToken(token string) (*Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	m.mu.RLock()
	sess, ok := m.sessions[claims.SessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidToken
	}
	if m.now().After(sess.ExpiresAt) {
		m.expire(sess.ID)
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Logout destroys the session. Identity, permissions, roles and any
// auxiliary state go together; a later check with the same token gets
// ErrInvalidToken and a nil-session gate check gets ErrLoginRequired.
func (m *Manager) Logout(sess *Session) {
	if sess == nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.mu.Unlock()

	sess.mu.Lock()
	sess.Identity = Identity{}
	sess.Perms = nil
	sess.Roles = nil
	sess.Aux = nil
	sess.ExpiresAt = time.Time{}
	sess.mu.Unlock()
}

// ActiveSessions reports the current session count.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expire(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) sign(sess *Session) (string, error) {
	claims := sessionClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.Identity.Email,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			ID:        sess.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
