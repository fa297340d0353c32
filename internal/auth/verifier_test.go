package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	cryptQuery = `SELECT id, email, rol, sede_id, (password_hash = crypt($1, password_hash)) AS ok
FROM app_user WHERE email = $2 LIMIT 1`
	legacyQuery = `SELECT id, email, rol, sede_id, password_sha256
FROM app_user WHERE email = $1 LIMIT 1`
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestVerifyCryptMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "ok"}).
		AddRow(int64(7), "ana@gym.mx", "recepcion", int64(2), true)
	mock.ExpectQuery(regexp.QuoteMeta(cryptQuery)).
		WithArgs("s3cret", "ana@gym.mx").
		WillReturnRows(rows)

	v := NewVerifier(db)
	id, err := v.Verify(context.Background(), "  Ana@Gym.MX ", "s3cret")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.ID != 7 || id.Role != "recepcion" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.FacilityID == nil || *id.FacilityID != 2 {
		t.Fatalf("expected facility 2, got %v", id.FacilityID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyFallsThroughToLegacyOnMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Primary hash predates the password, so crypt() says no, but the
	// legacy column still matches.
	mock.ExpectQuery(regexp.QuoteMeta(cryptQuery)).
		WithArgs("oldpass", "luis@gym.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "ok"}).
			AddRow(int64(3), "luis@gym.mx", "entrenador", nil, false))
	mock.ExpectQuery(regexp.QuoteMeta(legacyQuery)).
		WithArgs("luis@gym.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "password_sha256"}).
			AddRow(int64(3), "luis@gym.mx", "entrenador", nil, sha256Hex("oldpass")))

	v := NewVerifier(db)
	id, err := v.Verify(context.Background(), "luis@gym.mx", "oldpass")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.ID != 3 || id.FacilityID != nil {
		t.Fatalf("unexpected identity %+v", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyFallsThroughWhenPrimaryUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(cryptQuery)).
		WithArgs("pw", "eva@gym.mx").
		WillReturnError(errors.New("function crypt(text, text) does not exist"))
	mock.ExpectQuery(regexp.QuoteMeta(legacyQuery)).
		WithArgs("eva@gym.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "password_sha256"}).
			AddRow(int64(9), "eva@gym.mx", "finanzas", int64(1), sha256Hex("pw")))

	v := NewVerifier(db)
	id, err := v.Verify(context.Background(), "eva@gym.mx", "pw")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.ID != 9 {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestVerifyRejectsWhenNoStrategyMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(cryptQuery)).
		WithArgs("wrong", "ana@gym.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "ok"}).
			AddRow(int64(7), "ana@gym.mx", "recepcion", int64(2), false))
	mock.ExpectQuery(regexp.QuoteMeta(legacyQuery)).
		WithArgs("ana@gym.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "password_sha256"}).
			AddRow(int64(7), "ana@gym.mx", "recepcion", int64(2), nil))

	v := NewVerifier(db)
	if _, err := v.Verify(context.Background(), "ana@gym.mx", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyUnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(cryptQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "ok"}))
	mock.ExpectQuery(regexp.QuoteMeta(legacyQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "rol", "sede_id", "password_sha256"}))

	v := NewVerifier(db)
	if _, err := v.Verify(context.Background(), "nobody@gym.mx", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyEmptyInputSkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	v := NewVerifier(db)
	if _, err := v.Verify(context.Background(), "", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := v.Verify(context.Background(), "ana@gym.mx", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
