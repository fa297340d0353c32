package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymops.dev/internal/auth"
)

// Socio is a gym member.
type Socio struct {
	ID        int64     `json:"id"`
	DNI       string    `json:"dni,omitempty"`
	Nombre    string    `json:"nombre"`
	Email     string    `json:"email,omitempty"`
	Telefono  string    `json:"telefono,omitempty"`
	Estado    string    `json:"estado"`
	FechaAlta time.Time `json:"fecha_alta"`
}

// SocioUpdate carries the mutable fields; nil means leave as-is.
type SocioUpdate struct {
	DNI      *string
	Nombre   *string
	Email    *string
	Telefono *string
	Estado   *string
}

// SearchSocios lists members, optionally filtered by a name/email
// fragment. Results come newest first.
func (s *Store) SearchSocios(ctx context.Context, q string, limit int) ([]Socio, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, dni, nombre, email, telefono, estado, fecha_alta FROM socio`
	var args []any
	if q = strings.TrimSpace(q); q != "" {
		query += ` WHERE nombre ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSocios(rows)
}

func (s *Store) GetSocio(ctx context.Context, id int64) (Socio, error) {
	var (
		so                   Socio
		dni, email, telefono sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dni, nombre, email, telefono, estado, fecha_alta FROM socio WHERE id = $1`, id).
		Scan(&so.ID, &dni, &so.Nombre, &email, &telefono, &so.Estado, &so.FechaAlta)
	if errors.Is(err, sql.ErrNoRows) {
		return Socio{}, ErrNotFound
	}
	if err != nil {
		return Socio{}, err
	}
	so.DNI, so.Email, so.Telefono = strOrEmpty(dni), strOrEmpty(email), strOrEmpty(telefono)
	return so, nil
}

// UpdateSocio applies the non-nil fields and returns the fresh row.
func (s *Store) UpdateSocio(ctx context.Context, id int64, upd SocioUpdate) (Socio, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if upd.DNI != nil {
		set("dni", nullIfEmpty(*upd.DNI))
	}
	if upd.Nombre != nil {
		set("nombre", *upd.Nombre)
	}
	if upd.Email != nil {
		set("email", nullIfEmpty(*upd.Email))
	}
	if upd.Telefono != nil {
		set("telefono", nullIfEmpty(*upd.Telefono))
	}
	if upd.Estado != nil {
		set("estado", *upd.Estado)
	}
	if len(sets) == 0 {
		return s.GetSocio(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE socio SET %s WHERE id = $%d`, strings.Join(sets, ", "), idx)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Socio{}, mapPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Socio{}, ErrNotFound
	}
	return s.GetSocio(ctx, id)
}

func (s *Store) DeleteSocio(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM socio WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sede is a facility.
type Sede struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

func (s *Store) ListSedes(ctx context.Context) ([]Sede, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nombre FROM sede ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sedes []Sede
	for rows.Next() {
		var sd Sede
		if err := rows.Scan(&sd.ID, &sd.Nombre); err != nil {
			return nil, err
		}
		sedes = append(sedes, sd)
	}
	return sedes, rows.Err()
}

func scanSocios(rows *sql.Rows) ([]Socio, error) {
	var out []Socio
	for rows.Next() {
		var (
			so                   Socio
			dni, email, telefono sql.NullString
		)
		if err := rows.Scan(&so.ID, &dni, &so.Nombre, &email, &telefono, &so.Estado, &so.FechaAlta); err != nil {
			return nil, err
		}
		so.DNI, so.Email, so.Telefono = strOrEmpty(dni), strOrEmpty(email), strOrEmpty(telefono)
		out = append(out, so)
	}
	return out, rows.Err()
}

// session pulls the caller's session for scoped queries.
func session(ctx context.Context) *auth.Session {
	return auth.SessionFromContext(ctx)
}
