package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/sproc"
	"gymops.dev/internal/store/pg"
	"gymops.dev/internal/stream"
)

func TestPublicEndpointsNeedNoToken(t *testing.T) {
	api := newTestAPI(t, auth.RoleRecepcion, nil, nil, nil)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t, auth.RoleRecepcion, nil, nil, nil)

	resp := api.post("/v1/auth/login", map[string]any{"email": "ana@gym.mx", "password": "wrong"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if len(api.auditor.calls) == 0 || api.auditor.calls[0] != "login_fallido" {
		t.Fatalf("expected login_fallido audit entry, got %v", api.auditor.calls)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	api := newTestAPI(t, auth.RoleRecepcion, nil, nil, nil)

	resp := api.get("/v1/socios", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/socios", bearerHeader("not-a-token"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", resp.StatusCode)
	}
}

func TestMissingPermissionIsForbidden(t *testing.T) {
	perms := auth.NewPermissionSet(auth.PermKPIView)
	api := newTestAPI(t, auth.RoleEntrenador, perms, nil, nil)
	token := api.login()

	resp := api.get("/v1/socios", bearerHeader(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminRoleBypassesPermissionChecks(t *testing.T) {
	// No permissions at all; the role label alone opens every gate.
	api := newTestAPI(t, "ADMIN", nil, nil, nil)
	token := api.login()

	for _, path := range []string{"/v1/socios", "/v1/usuarios", "/v1/auditoria", "/v1/kpis"} {
		resp := api.get(path, bearerHeader(token))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200 for admin, got %d", path, resp.StatusCode)
		}
	}
}

func TestListSocios(t *testing.T) {
	store := &stubStore{
		searchSociosFn: func(ctx context.Context, q string, limit int) ([]pg.Socio, error) {
			if q != "ana" {
				t.Errorf("expected query ana, got %q", q)
			}
			return []pg.Socio{{ID: 3, Nombre: "Ana Torres", Estado: "activo"}}, nil
		},
	}
	perms := auth.NewPermissionSet(auth.PermSociosRead)
	api := newTestAPI(t, auth.RoleRecepcion, perms, store, nil)
	token := api.login()

	resp := api.get("/v1/socios?q=ana", bearerHeader(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Socios []pg.Socio `json:"socios"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Socios) != 1 || payload.Socios[0].Nombre != "Ana Torres" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCreateSocio(t *testing.T) {
	perms := auth.NewPermissionSet(auth.PermSociosCreate)
	api := newTestAPI(t, auth.RoleRecepcion, perms, nil, nil)
	token := api.login()

	resp := api.post("/v1/socios", map[string]any{"nombre": "Luis Vega", "dni": "X123"}, bearerHeader(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var payload map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["socio_id"] != 42 {
		t.Fatalf("expected socio_id 42, got %v", payload)
	}

	found := false
	for _, action := range api.auditor.calls {
		if action == "socio_alta" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected socio_alta audit entry, got %v", api.auditor.calls)
	}
}

func TestReservaFullClassIsUnprocessable(t *testing.T) {
	procs := &stubProcs{
		reservarFn: func(ctx context.Context, socioID, claseID int64) (sproc.Result, error) {
			return sproc.Result{}, &sproc.ProcError{Status: "ERROR", Code: "CUPO_LLENO", Message: "clase llena"}
		},
	}
	perms := auth.NewPermissionSet(auth.PermReservationsCreate)
	api := newTestAPI(t, auth.RoleRecepcion, perms, nil, procs)
	token := api.login()

	resp := api.post("/v1/clases/5/reservas", map[string]any{"socio_id": 3}, bearerHeader(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["code"] != "CUPO_LLENO" {
		t.Fatalf("expected code CUPO_LLENO, got %v", payload)
	}
}

func TestRegistrarAccesoPublishesEvent(t *testing.T) {
	feed := stream.New()
	perms := auth.NewPermissionSet(auth.PermAccessEntry)
	api := newTestAPI(t, auth.RoleRecepcion, perms, nil, nil, WithStream(feed))
	token := api.login()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := feed.Subscribe(ctx, 2)

	resp := api.post("/v1/accesos", map[string]any{"socio_id": 3, "sede_id": 2}, bearerHeader(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	select {
	case ev := <-events:
		if ev.Direction != "entrada" || ev.SedeID != 2 || ev.AccesoID != 88 {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Aforo != 17 {
			t.Fatalf("expected aforo 17 on event, got %d", ev.Aforo)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no access event published")
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	perms := auth.NewPermissionSet(auth.PermSociosRead)
	api := newTestAPI(t, auth.RoleRecepcion, perms, nil, nil)
	token := api.login()

	resp := api.post("/v1/auth/logout", nil, bearerHeader(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/socios", bearerHeader(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stale token: expected 401, got %d", resp.StatusCode)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	api := newTestAPI(t, auth.RoleRecepcion, nil, nil, nil, WithRateLimit(1, 1))

	got429 := false
	for i := 0; i < 5; i++ {
		resp := api.get("/healthz", nil)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Header.Get("Retry-After") == "" {
				t.Error("429 without Retry-After header")
			}
			got429 = true
			break
		}
	}
	if !got429 {
		t.Fatal("burst of requests never hit the limiter")
	}
}
