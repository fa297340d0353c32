package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Producto is a point-of-sale product. Prices are integer centavos.
type Producto struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Precio int64  `json:"precio"`
	Stock  int    `json:"stock"`
	Activo bool   `json:"activo"`
}

func (s *Store) ListProductos(ctx context.Context, soloActivos bool, limit int) ([]Producto, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, nombre, precio, stock, activo FROM producto`
	if soloActivos {
		query += ` WHERE activo IS TRUE AND stock > 0`
	}
	query += ` ORDER BY nombre LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Producto
	for rows.Next() {
		var p Producto
		if err := rows.Scan(&p.ID, &p.Nombre, &p.Precio, &p.Stock, &p.Activo); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProducto(ctx context.Context, p Producto) (Producto, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO producto (nombre, precio, stock, activo) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Nombre, p.Precio, p.Stock, p.Activo).Scan(&p.ID)
	if err != nil {
		return Producto{}, mapPgError(err)
	}
	return p, nil
}

// VentaItem is one line of a sale.
type VentaItem struct {
	ProductoID     int64 `json:"producto_id"`
	Cantidad       int   `json:"cantidad"`
	PrecioUnitario int64 `json:"precio_unitario"`
}

// Venta is a completed sale.
type Venta struct {
	ID    int64     `json:"id"`
	Fecha time.Time `json:"fecha"`
	Socio string    `json:"socio"`
	Total int64     `json:"total"`
}

// CreateVenta records a sale and its items in one transaction,
// decrementing stock. The price charged is the product's current
// price; a product without enough stock aborts the whole sale.
func (s *Store) CreateVenta(ctx context.Context, socioID int64, sedeID *int64, items []VentaItem) (int64, error) {
	if len(items) == 0 {
		return 0, errors.New("store: venta sin items")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var ventaID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO venta (socio_id, sede_id, fecha, total) VALUES ($1, $2, now(), 0) RETURNING id`,
		socioID, sedeID).Scan(&ventaID); err != nil {
		return 0, mapPgError(err)
	}

	var total int64
	for _, it := range items {
		var precio int64
		err := tx.QueryRowContext(ctx,
			`UPDATE producto SET stock = stock - $2
WHERE id = $1 AND activo IS TRUE AND stock >= $2
RETURNING precio`, it.ProductoID, it.Cantidad).Scan(&precio)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("store: producto %d sin stock suficiente", it.ProductoID)
		}
		if err != nil {
			return 0, mapPgError(err)
		}

		subtotal := precio * int64(it.Cantidad)
		total += subtotal
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO venta_item (venta_id, producto_id, cantidad, precio_unitario, subtotal)
VALUES ($1, $2, $3, $4, $5)`, ventaID, it.ProductoID, it.Cantidad, precio, subtotal); err != nil {
			return 0, mapPgError(err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE venta SET total = $2 WHERE id = $1`, ventaID, total); err != nil {
		return 0, mapPgError(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return ventaID, nil
}

// ListVentas returns sales within the caller's facility scope, newest
// first.
func (s *Store) ListVentas(ctx context.Context, limit int) ([]Venta, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	query, args := s.scoper.ScopeQuery(session(ctx),
		`SELECT v.id, v.fecha, v.total, s.nombre AS socio
FROM venta v JOIN socio s ON s.id = v.socio_id WHERE true`, nil)
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY v.fecha DESC, v.id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Venta
	for rows.Next() {
		var v Venta
		if err := rows.Scan(&v.ID, &v.Fecha, &v.Total, &v.Socio); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RefundVenta reverses a sale: restores stock and marks the sale
// refunded. Already-refunded sales return ErrConflict.
func (s *Store) RefundVenta(ctx context.Context, ventaID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE venta SET estado = 'reembolsada' WHERE id = $1 AND estado IS DISTINCT FROM 'reembolsada'`, ventaID)
	if err != nil {
		return mapPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT true FROM venta WHERE id = $1`, ventaID).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE producto p SET stock = p.stock + vi.cantidad
FROM venta_item vi WHERE vi.venta_id = $1 AND vi.producto_id = p.id`, ventaID); err != nil {
		return mapPgError(err)
	}
	return tx.Commit()
}
