package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AppUser is a back-office operator account.
type AppUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Rol       string    `json:"rol"`
	SedeID    *int64    `json:"sede_id,omitempty"`
	Sede      string    `json:"sede,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAppUser registers an operator. The password is hashed with
// bcrypt; pgcrypto's crypt() verifies it at login.
func (s *Store) CreateAppUser(ctx context.Context, email, password, rol string, sedeID *int64) (AppUser, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AppUser{}, fmt.Errorf("hash password: %w", err)
	}

	var u AppUser
	var sede sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO app_user (email, password_hash, rol, sede_id)
VALUES ($1, $2, $3, $4) RETURNING id, email, rol, sede_id, created_at`,
		email, string(hash), rol, sedeID).
		Scan(&u.ID, &u.Email, &u.Rol, &sede, &u.CreatedAt)
	if err != nil {
		return AppUser{}, mapPgError(err)
	}
	if sede.Valid {
		u.SedeID = &sede.Int64
	}
	return u, nil
}

// UpdateAppUser changes an operator's role and facility assignment.
func (s *Store) UpdateAppUser(ctx context.Context, id int64, rol string, sedeID *int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE app_user SET rol = $2, sede_id = $3 WHERE id = $1`, id, rol, sedeID)
	if err != nil {
		return mapPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAppUsers(ctx context.Context) ([]AppUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.rol, u.sede_id, s.nombre AS sede, u.created_at
FROM app_user u LEFT JOIN sede s ON s.id = u.sede_id ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppUser
	for rows.Next() {
		var (
			u    AppUser
			sede sql.NullInt64
			nom  sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Rol, &sede, &nom, &u.CreatedAt); err != nil {
			return nil, err
		}
		if sede.Valid {
			u.SedeID = &sede.Int64
		}
		u.Sede = strOrEmpty(nom)
		out = append(out, u)
	}
	return out, rows.Err()
}

// AuditEntry is one row of the audit-trail view.
type AuditEntry struct {
	ID     int64          `json:"id"`
	Fecha  time.Time      `json:"fecha"`
	Actor  string         `json:"actor,omitempty"`
	Accion string         `json:"accion"`
	Tabla  string         `json:"tabla"`
	Detail map[string]any `json:"detalle,omitempty"`
}

// AuditFilter narrows ListAuditoria.
type AuditFilter struct {
	Desde time.Time
	Hasta time.Time
	Actor string
	Tabla string
	Limit int
}

// ListAuditoria reads the auditoria_v view, newest first.
func (s *Store) ListAuditoria(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Hasta.IsZero() {
		f.Hasta = time.Now()
	}
	if f.Desde.IsZero() {
		f.Desde = f.Hasta.AddDate(0, 0, -7)
	}

	query := `SELECT id, fecha, actor, accion, tabla, detalle FROM auditoria_v
WHERE fecha::date BETWEEN $1 AND $2`
	args := []any{f.Desde, f.Hasta}
	if f.Actor != "" {
		args = append(args, "%"+f.Actor+"%")
		query += fmt.Sprintf(` AND actor ILIKE $%d`, len(args))
	}
	if f.Tabla != "" {
		args = append(args, "%"+f.Tabla+"%")
		query += fmt.Sprintf(` AND tabla ILIKE $%d`, len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(` ORDER BY fecha DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e      AuditEntry
			actor  sql.NullString
			detail []byte
		)
		if err := rows.Scan(&e.ID, &e.Fecha, &actor, &e.Accion, &e.Tabla, &detail); err != nil {
			return nil, err
		}
		e.Actor = strOrEmpty(actor)
		if len(detail) > 0 {
			// Malformed detalle is dropped, not fatal.
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				e.Detail = nil
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
