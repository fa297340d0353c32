// Package audit appends business events to the auditoria table.
// Recording is fire-and-forget: an unavailable audit store must never
// fail the operation being audited.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/obs"
)

// Recorder writes audit rows.
type Recorder struct {
	db *sql.DB
}

// NewRecorder builds a Recorder over the given handle.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record inserts one audit row. The actor is taken from the session in
// the context; anonymous events get a NULL usuario_id. Failures are
// logged and swallowed.
func (r *Recorder) Record(ctx context.Context, action, entity string, entityID *int64, detail map[string]any) {
	var actor sql.NullInt64
	if sess := auth.SessionFromContext(ctx); sess != nil && sess.Identity.ID != 0 {
		actor = sql.NullInt64{Int64: sess.Identity.ID, Valid: true}
	}

	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			detailJSON = nil
		}
	}

	var id sql.NullInt64
	if entityID != nil {
		id = sql.NullInt64{Int64: *entityID, Valid: true}
	}

	const q = `INSERT INTO auditoria (usuario_id, accion, entidad, entidad_id, detalle)
VALUES ($1, $2, $3, $4, $5::jsonb)`

	// Detach from the request's cancellation so an aborted request
	// still gets its audit row.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, q, actor, action, entity, id, nullableJSON(detailJSON)); err != nil {
		obs.Warn("audit insert dropped", map[string]any{"action": action, "error": err.Error()})
	}
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
