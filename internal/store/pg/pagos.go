package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pago is a recorded payment. Amounts are integer centavos; refunds
// appear as negative rows.
type Pago struct {
	ID         int64     `json:"id"`
	Fecha      time.Time `json:"fecha"`
	Socio      string    `json:"socio"`
	Concepto   string    `json:"concepto"`
	Medio      string    `json:"medio"`
	Monto      int64     `json:"monto"`
	RefExterna string    `json:"ref_externa,omitempty"`
}

// PagoFilter narrows ListPagos. Zero times mean no bound.
type PagoFilter struct {
	Desde time.Time
	Hasta time.Time
	Medio string
	Limit int
}

// ListPagos returns payments within the caller's facility scope,
// newest first.
func (s *Store) ListPagos(ctx context.Context, f PagoFilter) ([]Pago, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}

	query := `SELECT p.id, p.fecha, s.nombre AS socio, p.concepto, p.medio, p.monto, p.ref_externa
FROM pago p JOIN socio s ON s.id = p.socio_id WHERE true`
	var args []any
	if !f.Desde.IsZero() {
		args = append(args, f.Desde)
		query += fmt.Sprintf(` AND p.fecha >= $%d`, len(args))
	}
	if !f.Hasta.IsZero() {
		args = append(args, f.Hasta)
		query += fmt.Sprintf(` AND p.fecha < $%d`, len(args))
	}
	if f.Medio != "" {
		args = append(args, f.Medio)
		query += fmt.Sprintf(` AND p.medio = $%d`, len(args))
	}
	query, args = s.scoper.ScopeQuery(session(ctx), query, args)
	args = append(args, f.Limit)
	query += fmt.Sprintf(` ORDER BY p.fecha DESC, p.id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pago
	for rows.Next() {
		var (
			p   Pago
			ref sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Fecha, &p.Socio, &p.Concepto, &p.Medio, &p.Monto, &ref); err != nil {
			return nil, err
		}
		p.RefExterna = strOrEmpty(ref)
		out = append(out, p)
	}
	return out, rows.Err()
}

// IngresosPorDia is one day of the revenue report.
type IngresosPorDia struct {
	Dia      time.Time `json:"dia"`
	Ingresos int64     `json:"ingresos"`
}

// ReportIngresos aggregates daily revenue for the last days, newest
// first.
func (s *Store) ReportIngresos(ctx context.Context, days int) ([]IngresosPorDia, error) {
	if days <= 0 || days > 365 {
		days = 60
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(fecha) AS dia, sum(monto) AS ingresos FROM pago GROUP BY 1 ORDER BY 1 DESC LIMIT $1`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IngresosPorDia
	for rows.Next() {
		var d IngresosPorDia
		if err := rows.Scan(&d.Dia, &d.Ingresos); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RefundPago inserts the compensating negative row for a payment and
// returns the new row's id.
func (s *Store) RefundPago(ctx context.Context, pagoID int64, motivo string) (int64, error) {
	var refundID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO pago (socio_id, concepto, monto, medio, ref_externa, fecha)
SELECT socio_id, 'reembolso: ' || $2, -monto, medio, ref_externa, now()
FROM pago WHERE id = $1 AND monto > 0
RETURNING id`, pagoID, motivo).Scan(&refundID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return refundID, nil
}
