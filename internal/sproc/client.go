// Package sproc wraps the stored procedures that carry the gym's
// transactional business rules. The procedures validate and mutate in
// one place; this package only shuttles arguments in and results out.
package sproc

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Result is the row every mutating procedure returns.
type Result struct {
	Status   string
	Code     string
	Message  string
	EntityID sql.NullInt64
}

// ProcError is a procedure-level rejection (status other than OK). The
// code and message come straight from the database and are safe to
// show to operators.
type ProcError struct {
	Status  string
	Code    string
	Message string
}

func (e *ProcError) Error() string {
	return fmt.Sprintf("sproc: %s (%s)", e.Message, e.Code)
}

// Client calls the stored procedures.
type Client struct {
	db *sql.DB
}

// NewClient builds a Client over the given handle.
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// call runs one procedure returning the standard result row. A status
// other than OK becomes a *ProcError.
func (c *Client) call(ctx context.Context, query string, args ...any) (Result, error) {
	var res Result
	err := c.db.QueryRowContext(ctx, query, args...).
		Scan(&res.Status, &res.Code, &res.Message, &res.EntityID)
	if err != nil {
		return Result{}, fmt.Errorf("call procedure: %w", err)
	}
	if res.Status != "OK" {
		return res, &ProcError{Status: res.Status, Code: res.Code, Message: res.Message}
	}
	return res, nil
}

// AltaSocio registers a new member. Optional fields go in as nil.
func (c *Client) AltaSocio(ctx context.Context, dni, nombre, email, telefono *string) (Result, error) {
	const q = `SELECT status, code, message, socio_id FROM sp_alta_socio($1, $2, $3, $4)`
	return c.call(ctx, q, dni, nombre, email, telefono)
}

// CrearMembresia assigns a plan to a member starting on the given day.
func (c *Client) CrearMembresia(ctx context.Context, socioID, planID int64, fechaInicio time.Time) (Result, error) {
	const q = `SELECT status, code, message, membresia_id FROM sp_crear_membresia($1, $2, $3)`
	return c.call(ctx, q, socioID, planID, fechaInicio)
}

// RegistrarPago records a payment. Amounts are integer centavos.
func (c *Client) RegistrarPago(ctx context.Context, socioID int64, concepto string, monto int64, medio string, refExterna *string) (Result, error) {
	const q = `SELECT status, code, message, pago_id FROM sp_registrar_pago($1, $2, $3, $4, $5)`
	return c.call(ctx, q, socioID, concepto, monto, medio, refExterna)
}

// PublicarClase publishes a class at a facility.
func (c *Client) PublicarClase(ctx context.Context, sedeID int64, nombre string, fechaHora time.Time, capacidad int) (Result, error) {
	const q = `SELECT status, code, message, clase_id FROM sp_publicar_clase($1, $2, $3, $4)`
	return c.call(ctx, q, sedeID, nombre, fechaHora, capacidad)
}

// ReservarClase books a member into a class.
func (c *Client) ReservarClase(ctx context.Context, socioID, claseID int64) (Result, error) {
	const q = `SELECT status, code, message, reserva_id FROM sp_reservar_clase($1, $2)`
	return c.call(ctx, q, socioID, claseID)
}

// CheckinClase marks a reservation as attended.
func (c *Client) CheckinClase(ctx context.Context, reservaID int64) (Result, error) {
	const q = `SELECT status, code, message, reserva_id FROM sp_checkin_clase($1)`
	return c.call(ctx, q, reservaID)
}

// RegistrarAcceso opens an access record for a member at a facility.
func (c *Client) RegistrarAcceso(ctx context.Context, socioID, sedeID int64) (Result, error) {
	const q = `SELECT status, code, message, acceso_id FROM sp_registrar_acceso($1, $2)`
	return c.call(ctx, q, socioID, sedeID)
}

// RegistrarSalida closes an open access record.
func (c *Client) RegistrarSalida(ctx context.Context, accesoID int64) (Result, error) {
	const q = `SELECT status, code, message, acceso_id FROM sp_registrar_salida($1)`
	return c.call(ctx, q, accesoID)
}

// AforoActual returns how many people are currently inside a facility.
func (c *Client) AforoActual(ctx context.Context, sedeID int64) (int, error) {
	const q = `SELECT sp_aforo_actual($1)`
	var count int
	if err := c.db.QueryRowContext(ctx, q, sedeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("aforo actual: %w", err)
	}
	return count, nil
}

// KPISnapshot is the executive summary row served by sp_kpis.
type KPISnapshot struct {
	Socios            int64 `json:"socios"`
	MembresiasActivas int64 `json:"membresias_activas"`
	AccesosHoy        int64 `json:"accesos_hoy"`
}

// KPIs returns the executive summary.
func (c *Client) KPIs(ctx context.Context) (KPISnapshot, error) {
	const q = `SELECT socios, membresias_activas, accesos_hoy FROM sp_kpis()`
	var k KPISnapshot
	if err := c.db.QueryRowContext(ctx, q).Scan(&k.Socios, &k.MembresiasActivas, &k.AccesosHoy); err != nil {
		return KPISnapshot{}, fmt.Errorf("kpis: %w", err)
	}
	return k, nil
}
