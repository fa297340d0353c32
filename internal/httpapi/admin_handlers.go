package httpapi

import (
	"net/http"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/store/pg"
)

type createUsuarioRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Rol      string `json:"rol"`
	SedeID   *int64 `json:"sede_id"`
}

type updateUsuarioRequest struct {
	Rol    string `json:"rol"`
	SedeID *int64 `json:"sede_id"`
}

func (a *API) handleKPIs(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermKPIView) {
		return
	}
	snapshot, err := a.procs.KPIs(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermUsersManage) {
		return
	}
	users, err := a.store.ListAppUsers(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usuarios": users})
}

func (a *API) handleCreateUsuario(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermUsersManage) {
		return
	}
	var req createUsuarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || len(req.Password) < 8 || req.Rol == "" {
		writeError(w, r, http.StatusBadRequest, "email, rol and a password of at least 8 characters are required")
		return
	}

	user, err := a.store.CreateAppUser(r.Context(), req.Email, req.Password, req.Rol, req.SedeID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "usuario_alta", "app_user", &user.ID, map[string]any{
		"email": user.Email,
		"rol":   user.Rol,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUpdateUsuario(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermUsersManage) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateUsuarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rol == "" {
		writeError(w, r, http.StatusBadRequest, "rol is required")
		return
	}

	if err := a.store.UpdateAppUser(r.Context(), id, req.Rol, req.SedeID); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "usuario_update", "app_user", &id, map[string]any{"rol": req.Rol})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListAuditoria(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermAuditView) {
		return
	}
	entries, err := a.store.ListAuditoria(r.Context(), pg.AuditFilter{
		Desde: queryDate(r, "desde"),
		Hasta: queryDate(r, "hasta"),
		Actor: r.URL.Query().Get("actor"),
		Tabla: r.URL.Query().Get("tabla"),
		Limit: queryLimit(r),
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auditoria": entries})
}
