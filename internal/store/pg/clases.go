package pg

import (
	"context"
	"fmt"
	"time"
)

// Plan is a membership plan. Prices are integer centavos.
type Plan struct {
	ID               int64  `json:"id"`
	Nombre           string `json:"nombre"`
	PrecioMensual    int64  `json:"precio_mensual"`
	DuracionDias     int    `json:"duracion_dias"`
	MaxCongelamiento int    `json:"max_congelamiento"`
}

func (s *Store) ListPlanes(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nombre, precio_mensual, duracion_dias, max_congelamiento FROM membresia_plan ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var planes []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Nombre, &p.PrecioMensual, &p.DuracionDias, &p.MaxCongelamiento); err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, rows.Err()
}

func (s *Store) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO membresia_plan (nombre, precio_mensual, duracion_dias, max_congelamiento)
VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Nombre, p.PrecioMensual, p.DuracionDias, p.MaxCongelamiento).Scan(&p.ID)
	if err != nil {
		return Plan{}, mapPgError(err)
	}
	return p, nil
}

// Clase is a scheduled class at a facility.
type Clase struct {
	ID        int64     `json:"id"`
	SedeID    int64     `json:"sede_id"`
	Nombre    string    `json:"nombre"`
	FechaHora time.Time `json:"fecha_hora"`
	Capacidad int       `json:"capacidad"`
	Estado    string    `json:"estado"`
}

// ListClases returns scheduled classes visible to the caller's
// facility scope, soonest last.
func (s *Store) ListClases(ctx context.Context, limit int) ([]Clase, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	query, args := s.scoper.ScopeQuery(session(ctx),
		`SELECT id, sede_id, nombre, fecha_hora, capacidad, estado FROM clase WHERE estado = 'programada'`, nil)
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY fecha_hora DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clases []Clase
	for rows.Next() {
		var c Clase
		if err := rows.Scan(&c.ID, &c.SedeID, &c.Nombre, &c.FechaHora, &c.Capacidad, &c.Estado); err != nil {
			return nil, err
		}
		clases = append(clases, c)
	}
	return clases, rows.Err()
}

// Membresia is a member's plan assignment.
type Membresia struct {
	ID          int64     `json:"id"`
	Socio       string    `json:"socio"`
	Plan        string    `json:"plan"`
	FechaInicio time.Time `json:"fecha_inicio"`
	FechaFin    time.Time `json:"fecha_fin"`
	Estado      string    `json:"estado"`
}

func (s *Store) ListMembresias(ctx context.Context, limit int) ([]Membresia, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, s.nombre AS socio, p.nombre AS plan, m.fecha_inicio, m.fecha_fin, m.estado
FROM membresia m JOIN socio s ON s.id = m.socio_id JOIN membresia_plan p ON p.id = m.plan_id
ORDER BY m.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Membresia
	for rows.Next() {
		var m Membresia
		if err := rows.Scan(&m.ID, &m.Socio, &m.Plan, &m.FechaInicio, &m.FechaFin, &m.Estado); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Acceso is a facility entry record. FechaSalida is nil while the
// member is still inside.
type Acceso struct {
	ID           int64      `json:"id"`
	SocioID      int64      `json:"socio_id"`
	SedeID       int64      `json:"sede_id"`
	FechaEntrada time.Time  `json:"fecha_entrada"`
	FechaSalida  *time.Time `json:"fecha_salida,omitempty"`
}

// ListAccesosAbiertos returns open accesses within the caller's
// facility scope, newest first.
func (s *Store) ListAccesosAbiertos(ctx context.Context, limit int) ([]Acceso, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query, args := s.scoper.ScopeQuery(session(ctx),
		`SELECT id, socio_id, sede_id, fecha_entrada FROM acceso WHERE fecha_salida IS NULL`, nil)
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Acceso
	for rows.Next() {
		var a Acceso
		if err := rows.Scan(&a.ID, &a.SocioID, &a.SedeID, &a.FechaEntrada); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
