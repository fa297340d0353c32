package httpapi

import (
	"net/http"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/store/pg"
)

type createPlanRequest struct {
	Nombre           string `json:"nombre"`
	PrecioMensual    int64  `json:"precio_mensual"`
	DuracionDias     int    `json:"duracion_dias"`
	MaxCongelamiento int    `json:"max_congelamiento"`
}

type createMembresiaRequest struct {
	SocioID     int64  `json:"socio_id"`
	PlanID      int64  `json:"plan_id"`
	FechaInicio string `json:"fecha_inicio"` // YYYY-MM-DD
}

type publicarClaseRequest struct {
	SedeID    int64     `json:"sede_id"`
	Nombre    string    `json:"nombre"`
	FechaHora time.Time `json:"fecha_hora"`
	Capacidad int       `json:"capacidad"`
}

type reservarClaseRequest struct {
	SocioID int64 `json:"socio_id"`
}

func (a *API) handleListPlanes(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	planes, err := a.store.ListPlanes(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"planes": planes})
}

func (a *API) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermPlansManage) {
		return
	}
	var req createPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Nombre == "" || req.PrecioMensual <= 0 || req.DuracionDias <= 0 {
		writeError(w, r, http.StatusBadRequest, "nombre, precio_mensual and duracion_dias are required")
		return
	}

	plan, err := a.store.CreatePlan(r.Context(), pg.Plan{
		Nombre:           req.Nombre,
		PrecioMensual:    req.PrecioMensual,
		DuracionDias:     req.DuracionDias,
		MaxCongelamiento: req.MaxCongelamiento,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "plan_alta", "membresia_plan", &plan.ID, map[string]any{"nombre": plan.Nombre})
	writeJSON(w, http.StatusCreated, plan)
}

func (a *API) handleListMembresias(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	membresias, err := a.store.ListMembresias(r.Context(), queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membresias": membresias})
}

func (a *API) handleCreateMembresia(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermMembershipAssign) {
		return
	}
	var req createMembresiaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inicio, err := time.Parse("2006-01-02", req.FechaInicio)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "fecha_inicio must be YYYY-MM-DD")
		return
	}

	res, err := a.procs.CrearMembresia(r.Context(), req.SocioID, req.PlanID, inicio)
	if err != nil {
		handleProcError(w, r, err)
		return
	}
	membresiaID := res.EntityID.Int64
	a.audit(r.Context(), "membresia_alta", "membresia", &membresiaID, map[string]any{
		"socio_id": req.SocioID,
		"plan_id":  req.PlanID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"membresia_id": membresiaID})
}

func (a *API) handleListClases(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	clases, err := a.store.ListClases(r.Context(), queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clases": clases})
}

func (a *API) handlePublicarClase(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermClassesPublish) {
		return
	}
	var req publicarClaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Nombre == "" || req.SedeID <= 0 || req.Capacidad <= 0 {
		writeError(w, r, http.StatusBadRequest, "sede_id, nombre and capacidad are required")
		return
	}

	res, err := a.procs.PublicarClase(r.Context(), req.SedeID, req.Nombre, req.FechaHora, req.Capacidad)
	if err != nil {
		handleProcError(w, r, err)
		return
	}
	claseID := res.EntityID.Int64
	a.audit(r.Context(), "clase_publicada", "clase", &claseID, map[string]any{"sede_id": req.SedeID})
	writeJSON(w, http.StatusCreated, map[string]any{"clase_id": claseID})
}

func (a *API) handleReservarClase(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermReservationsCreate) {
		return
	}
	claseID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req reservarClaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.procs.ReservarClase(r.Context(), req.SocioID, claseID)
	if err != nil {
		handleProcError(w, r, err)
		return
	}
	reservaID := res.EntityID.Int64
	a.audit(r.Context(), "reserva_alta", "reserva", &reservaID, map[string]any{
		"clase_id": claseID,
		"socio_id": req.SocioID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"reserva_id": reservaID})
}

func (a *API) handleCheckinClase(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermCheckin) {
		return
	}
	reservaID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.procs.CheckinClase(r.Context(), reservaID); err != nil {
		handleProcError(w, r, err)
		return
	}
	a.audit(r.Context(), "checkin", "reserva", &reservaID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"reserva_id": reservaID, "estado": "asistio"})
}
