package httpapi

import (
	"net/http"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/store/pg"
)

type createSocioRequest struct {
	DNI      string `json:"dni"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

type updateSocioRequest struct {
	DNI      *string `json:"dni"`
	Nombre   *string `json:"nombre"`
	Email    *string `json:"email"`
	Telefono *string `json:"telefono"`
	Estado   *string `json:"estado"`
}

func (a *API) handleListSocios(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSociosRead) {
		return
	}
	socios, err := a.store.SearchSocios(r.Context(), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"socios": socios})
}

func (a *API) handleCreateSocio(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSociosCreate) {
		return
	}
	var req createSocioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Nombre == "" {
		writeError(w, r, http.StatusBadRequest, "nombre is required")
		return
	}

	res, err := a.procs.AltaSocio(r.Context(),
		optional(req.DNI), &req.Nombre, optional(req.Email), optional(req.Telefono))
	if err != nil {
		handleProcError(w, r, err)
		return
	}

	socioID := res.EntityID.Int64
	a.audit(r.Context(), "socio_alta", "socio", &socioID, map[string]any{"nombre": req.Nombre})
	writeJSON(w, http.StatusCreated, map[string]any{"socio_id": socioID})
}

func (a *API) handleGetSocio(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSociosRead) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	socio, err := a.store.GetSocio(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, socio)
}

func (a *API) handleUpdateSocio(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSociosUpdate) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateSocioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	socio, err := a.store.UpdateSocio(r.Context(), id, pgSocioUpdate(req))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "socio_update", "socio", &id, nil)
	writeJSON(w, http.StatusOK, socio)
}

func (a *API) handleDeleteSocio(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSociosDelete) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.store.DeleteSocio(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "socio_baja", "socio", &id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListSedes(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	sedes, err := a.store.ListSedes(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sedes": sedes})
}

func pgSocioUpdate(req updateSocioRequest) pg.SocioUpdate {
	return pg.SocioUpdate{
		DNI:      req.DNI,
		Nombre:   req.Nombre,
		Email:    req.Email,
		Telefono: req.Telefono,
		Estado:   req.Estado,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
