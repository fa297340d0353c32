package httpapi

import (
	"errors"
	"net/http"
	"time"

	"gymops.dev/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	User      auth.Identity `json:"user"`
	Roles     []string      `json:"roles,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, token, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// Same answer for unknown email and wrong password.
			a.audit(r.Context(), "login_fallido", "app_user", nil, map[string]any{"email": req.Email})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	ctx := auth.ContextWithSession(r.Context(), sess)
	a.audit(ctx, "login", "app_user", &sess.Identity.ID, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
		User:      sess.Identity,
		Roles:     sess.Roles,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, r, http.StatusUnauthorized, "login required")
		return
	}
	userID := sess.Identity.ID
	a.audit(r.Context(), "logout", "app_user", &userID, nil)
	a.sessions.Logout(sess)
	w.WriteHeader(http.StatusNoContent)
}
