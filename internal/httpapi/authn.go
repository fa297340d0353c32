package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
}

// withAuth resolves the bearer token into a session and attaches it to
// the request context. Routes decide themselves which permissions they
// need; this layer only answers "who is calling".
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.IncAuthDenial("login")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		sess, err := a.sessions.FromToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.IncAuthDenial("login")
				writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := auth.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// require enforces that the caller holds every listed permission.
func (a *API) require(w http.ResponseWriter, r *http.Request, perms ...string) bool {
	sess := auth.SessionFromContext(r.Context())
	if err := a.sessions.RequireAll(r.Context(), sess, perms...); err != nil {
		a.authError(w, r, err)
		return false
	}
	return true
}

// loggedIn enforces only that an authenticated session is present.
func (a *API) loggedIn(w http.ResponseWriter, r *http.Request) bool {
	if auth.SessionFromContext(r.Context()) == nil {
		a.authError(w, r, auth.ErrLoginRequired)
		return false
	}
	return true
}

// requireAny enforces that the caller holds at least one permission.
func (a *API) requireAny(w http.ResponseWriter, r *http.Request, perms ...string) bool {
	sess := auth.SessionFromContext(r.Context())
	if err := a.sessions.RequireAny(r.Context(), sess, perms...); err != nil {
		a.authError(w, r, err)
		return false
	}
	return true
}

func (a *API) authError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *auth.DeniedError
	switch {
	case errors.Is(err, auth.ErrLoginRequired):
		obs.IncAuthDenial("login")
		writeError(w, r, http.StatusUnauthorized, "login required")
	case errors.As(err, &denied):
		obs.IncAuthDenial(denied.Kind)
		writeError(w, r, http.StatusForbidden, denied.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "authorization error")
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
