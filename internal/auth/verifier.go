package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"gymops.dev/internal/obs"
)

// CredentialVerifier authenticates an email/password pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (Identity, error)
}

// verification outcome of a single strategy attempt.
type outcome int

const (
	outcomeMatch outcome = iota
	outcomeMismatch
	outcomeUnavailable
)

// Verifier checks credentials against app_user. It runs an ordered
// strategy chain: the pgcrypto crypt() comparison first, then the
// legacy hex SHA-256 column. The chain moves on both when a strategy
// rejects the password and when it cannot produce an answer at all, so
// a failing primary store never locks out users that the legacy path
// can still authenticate.
type Verifier struct {
	db *sql.DB
}

// NewVerifier builds a Verifier over the given handle.
func NewVerifier(db *sql.DB) *Verifier {
	return &Verifier{db: db}
}

// Verify authenticates the pair. On failure it always returns
// ErrInvalidCredentials regardless of which strategy rejected or why.
func (v *Verifier) Verify(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		obs.IncLoginFailure()
		return Identity{}, ErrInvalidCredentials
	}

	strategies := []func(context.Context, string, string) (Identity, outcome){
		v.verifyCrypt,
		v.verifyLegacySHA256,
	}
	for _, try := range strategies {
		id, res := try(ctx, email, password)
		if res == outcomeMatch {
			return id, nil
		}
	}
	obs.IncLoginFailure()
	return Identity{}, ErrInvalidCredentials
}

// verifyCrypt compares against the pgcrypto hash in the database, so
// the cleartext never leaves the query parameters and the stored hash
// never reaches this process.
func (v *Verifier) verifyCrypt(ctx context.Context, email, password string) (Identity, outcome) {
	const q = `SELECT id, email, rol, sede_id, (password_hash = crypt($1, password_hash)) AS ok
FROM app_user WHERE email = $2 LIMIT 1`

	var (
		id     Identity
		sedeID sql.NullInt64
		ok     sql.NullBool
	)
	err := v.db.QueryRowContext(ctx, q, password, email).Scan(&id.ID, &id.Email, &id.Role, &sedeID, &ok)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Identity{}, outcomeMismatch
	case err != nil:
		obs.Warn("credential check unavailable", map[string]any{"strategy": "crypt", "error": err.Error()})
		return Identity{}, outcomeUnavailable
	}
	if !ok.Valid || !ok.Bool {
		return Identity{}, outcomeMismatch
	}
	if sedeID.Valid {
		id.FacilityID = &sedeID.Int64
	}
	return id, outcomeMatch
}

// verifyLegacySHA256 checks the pre-migration password_sha256 column.
// Rows that were re-hashed have it NULL, which counts as a mismatch.
func (v *Verifier) verifyLegacySHA256(ctx context.Context, email, password string) (Identity, outcome) {
	const q = `SELECT id, email, rol, sede_id, password_sha256
FROM app_user WHERE email = $1 LIMIT 1`

	var (
		id     Identity
		sedeID sql.NullInt64
		stored sql.NullString
	)
	err := v.db.QueryRowContext(ctx, q, email).Scan(&id.ID, &id.Email, &id.Role, &sedeID, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Identity{}, outcomeMismatch
	case err != nil:
		obs.Warn("credential check unavailable", map[string]any{"strategy": "sha256", "error": err.Error()})
		return Identity{}, outcomeUnavailable
	}
	if !stored.Valid || stored.String == "" {
		return Identity{}, outcomeMismatch
	}

	sum := sha256.Sum256([]byte(password))
	computed := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(stored.String))) != 1 {
		return Identity{}, outcomeMismatch
	}
	if sedeID.Valid {
		id.FacilityID = &sedeID.Int64
	}
	return id, outcomeMatch
}
