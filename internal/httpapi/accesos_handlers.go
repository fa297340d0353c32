package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/ids"
	"gymops.dev/internal/obs"
	"gymops.dev/internal/stream"
)

type registrarAccesoRequest struct {
	SocioID int64 `json:"socio_id"`
	SedeID  int64 `json:"sede_id"`
}

func (a *API) handleListAccesos(w http.ResponseWriter, r *http.Request) {
	if !a.requireAny(w, r, auth.PermAccessEntry, auth.PermAccessExit) {
		return
	}
	accesos, err := a.store.ListAccesosAbiertos(r.Context(), queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accesos": accesos})
}

func (a *API) handleRegistrarAcceso(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermAccessEntry) {
		return
	}
	var req registrarAccesoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SocioID <= 0 || req.SedeID <= 0 {
		writeError(w, r, http.StatusBadRequest, "socio_id and sede_id are required")
		return
	}

	res, err := a.procs.RegistrarAcceso(r.Context(), req.SocioID, req.SedeID)
	if err != nil {
		handleProcError(w, r, err)
		return
	}
	accesoID := res.EntityID.Int64
	a.audit(r.Context(), "acceso_entrada", "acceso", &accesoID, map[string]any{"sede_id": req.SedeID})
	a.publishAccess(r.Context(), req.SedeID, req.SocioID, accesoID, "entrada")
	writeJSON(w, http.StatusCreated, map[string]any{"acceso_id": accesoID})
}

func (a *API) handleRegistrarSalida(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermAccessExit) {
		return
	}
	accesoID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.procs.RegistrarSalida(r.Context(), accesoID); err != nil {
		handleProcError(w, r, err)
		return
	}
	a.audit(r.Context(), "acceso_salida", "acceso", &accesoID, nil)

	// The exit row already carries the sede; re-query is not worth a
	// handler failure, so a missing sede just skips the live event.
	sedeID := querySede(r)
	if sedeID > 0 {
		a.publishAccess(r.Context(), sedeID, 0, accesoID, "salida")
	}
	writeJSON(w, http.StatusOK, map[string]any{"acceso_id": accesoID, "estado": "cerrado"})
}

func (a *API) handleAforo(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	sedeID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	aforo, err := a.procs.AforoActual(r.Context(), sedeID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	obs.SetOccupancy(sedeID, aforo)
	writeJSON(w, http.StatusOK, map[string]any{"sede_id": sedeID, "aforo": aforo})
}

// handleAforoStream serves the live access feed over SSE.
func (a *API) handleAforoStream(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	sedeID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch := a.stream.Subscribe(r.Context(), sedeID)

	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// publishAccess refreshes the occupancy gauge and fans the event out.
func (a *API) publishAccess(ctx context.Context, sedeID, socioID, accesoID int64, direction string) {
	if a.stream == nil {
		return
	}
	aforo, err := a.procs.AforoActual(ctx, sedeID)
	if err != nil {
		aforo = -1
	} else {
		obs.SetOccupancy(sedeID, aforo)
	}
	a.stream.Publish(stream.AccessEvent{
		ID:        ids.New(),
		SedeID:    sedeID,
		SocioID:   socioID,
		AccesoID:  accesoID,
		Direction: direction,
		Aforo:     aforo,
		Timestamp: time.Now().UTC(),
	})
}

func querySede(r *http.Request) int64 {
	sede, _ := strconv.ParseInt(r.URL.Query().Get("sede_id"), 10, 64)
	return sede
}
