package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/sproc"
	"gymops.dev/internal/store/pg"
)

// stubVerifier accepts one fixed credential pair.
type stubVerifier struct {
	email    string
	password string
	id       auth.Identity
}

func (s *stubVerifier) Verify(ctx context.Context, email, password string) (auth.Identity, error) {
	if email == s.email && password == s.password {
		return s.id, nil
	}
	return auth.Identity{}, auth.ErrInvalidCredentials
}

// stubResolver hands out a fixed permission set.
type stubResolver struct {
	perms auth.PermissionSet
	roles auth.RoleList
}

func (s *stubResolver) Resolve(ctx context.Context, id auth.Identity) (auth.PermissionSet, auth.RoleList) {
	return s.perms, s.roles
}

type stubStore struct {
	searchSociosFn func(context.Context, string, int) ([]pg.Socio, error)
	getSocioFn     func(context.Context, int64) (pg.Socio, error)
	deleteSocioFn  func(context.Context, int64) error
	listPagosFn    func(context.Context, pg.PagoFilter) ([]pg.Pago, error)
	refundPagoFn   func(context.Context, int64, string) (int64, error)
	listAuditFn    func(context.Context, pg.AuditFilter) ([]pg.AuditEntry, error)
	createUserFn   func(context.Context, string, string, string, *int64) (pg.AppUser, error)
}

func (s *stubStore) SearchSocios(ctx context.Context, q string, limit int) ([]pg.Socio, error) {
	if s.searchSociosFn != nil {
		return s.searchSociosFn(ctx, q, limit)
	}
	return nil, nil
}

func (s *stubStore) GetSocio(ctx context.Context, id int64) (pg.Socio, error) {
	if s.getSocioFn != nil {
		return s.getSocioFn(ctx, id)
	}
	return pg.Socio{}, pg.ErrNotFound
}

func (s *stubStore) UpdateSocio(ctx context.Context, id int64, upd pg.SocioUpdate) (pg.Socio, error) {
	return pg.Socio{ID: id}, nil
}

func (s *stubStore) DeleteSocio(ctx context.Context, id int64) error {
	if s.deleteSocioFn != nil {
		return s.deleteSocioFn(ctx, id)
	}
	return nil
}

func (s *stubStore) ListSedes(ctx context.Context) ([]pg.Sede, error)           { return nil, nil }
func (s *stubStore) ListPlanes(ctx context.Context) ([]pg.Plan, error)          { return nil, nil }
func (s *stubStore) CreatePlan(ctx context.Context, p pg.Plan) (pg.Plan, error) { return p, nil }
func (s *stubStore) ListMembresias(ctx context.Context, limit int) ([]pg.Membresia, error) {
	return nil, nil
}
func (s *stubStore) ListClases(ctx context.Context, limit int) ([]pg.Clase, error) { return nil, nil }
func (s *stubStore) ListAccesosAbiertos(ctx context.Context, limit int) ([]pg.Acceso, error) {
	return nil, nil
}

func (s *stubStore) ListPagos(ctx context.Context, f pg.PagoFilter) ([]pg.Pago, error) {
	if s.listPagosFn != nil {
		return s.listPagosFn(ctx, f)
	}
	return nil, nil
}

func (s *stubStore) ReportIngresos(ctx context.Context, days int) ([]pg.IngresosPorDia, error) {
	return nil, nil
}

func (s *stubStore) RefundPago(ctx context.Context, pagoID int64, motivo string) (int64, error) {
	if s.refundPagoFn != nil {
		return s.refundPagoFn(ctx, pagoID, motivo)
	}
	return 0, pg.ErrNotFound
}

func (s *stubStore) ListProductos(ctx context.Context, soloActivos bool, limit int) ([]pg.Producto, error) {
	return nil, nil
}
func (s *stubStore) CreateProducto(ctx context.Context, p pg.Producto) (pg.Producto, error) {
	return p, nil
}
func (s *stubStore) ListVentas(ctx context.Context, limit int) ([]pg.Venta, error) { return nil, nil }
func (s *stubStore) CreateVenta(ctx context.Context, socioID int64, sedeID *int64, items []pg.VentaItem) (int64, error) {
	return 1, nil
}
func (s *stubStore) RefundVenta(ctx context.Context, ventaID int64) error { return nil }

func (s *stubStore) CreateAppUser(ctx context.Context, email, password, rol string, sedeID *int64) (pg.AppUser, error) {
	if s.createUserFn != nil {
		return s.createUserFn(ctx, email, password, rol, sedeID)
	}
	return pg.AppUser{ID: 1, Email: email, Rol: rol}, nil
}

func (s *stubStore) UpdateAppUser(ctx context.Context, id int64, rol string, sedeID *int64) error {
	return nil
}
func (s *stubStore) ListAppUsers(ctx context.Context) ([]pg.AppUser, error) { return nil, nil }

func (s *stubStore) ListAuditoria(ctx context.Context, f pg.AuditFilter) ([]pg.AuditEntry, error) {
	if s.listAuditFn != nil {
		return s.listAuditFn(ctx, f)
	}
	return nil, nil
}

type stubProcs struct {
	altaSocioFn    func(context.Context, *string, *string, *string, *string) (sproc.Result, error)
	reservarFn     func(context.Context, int64, int64) (sproc.Result, error)
	registrarAccFn func(context.Context, int64, int64) (sproc.Result, error)
	aforoFn        func(context.Context, int64) (int, error)
	kpisFn         func(context.Context) (sproc.KPISnapshot, error)
}

func okResult(id int64) (sproc.Result, error) {
	res := sproc.Result{Status: "OK"}
	res.EntityID.Int64, res.EntityID.Valid = id, true
	return res, nil
}

func (s *stubProcs) AltaSocio(ctx context.Context, dni, nombre, email, telefono *string) (sproc.Result, error) {
	if s.altaSocioFn != nil {
		return s.altaSocioFn(ctx, dni, nombre, email, telefono)
	}
	return okResult(42)
}

func (s *stubProcs) CrearMembresia(ctx context.Context, socioID, planID int64, fechaInicio time.Time) (sproc.Result, error) {
	return okResult(1)
}

func (s *stubProcs) RegistrarPago(ctx context.Context, socioID int64, concepto string, monto int64, medio string, refExterna *string) (sproc.Result, error) {
	return okResult(9)
}

func (s *stubProcs) PublicarClase(ctx context.Context, sedeID int64, nombre string, fechaHora time.Time, capacidad int) (sproc.Result, error) {
	return okResult(5)
}

func (s *stubProcs) ReservarClase(ctx context.Context, socioID, claseID int64) (sproc.Result, error) {
	if s.reservarFn != nil {
		return s.reservarFn(ctx, socioID, claseID)
	}
	return okResult(7)
}

func (s *stubProcs) CheckinClase(ctx context.Context, reservaID int64) (sproc.Result, error) {
	return okResult(reservaID)
}

func (s *stubProcs) RegistrarAcceso(ctx context.Context, socioID, sedeID int64) (sproc.Result, error) {
	if s.registrarAccFn != nil {
		return s.registrarAccFn(ctx, socioID, sedeID)
	}
	return okResult(88)
}

func (s *stubProcs) RegistrarSalida(ctx context.Context, accesoID int64) (sproc.Result, error) {
	return okResult(accesoID)
}

func (s *stubProcs) AforoActual(ctx context.Context, sedeID int64) (int, error) {
	if s.aforoFn != nil {
		return s.aforoFn(ctx, sedeID)
	}
	return 17, nil
}

func (s *stubProcs) KPIs(ctx context.Context) (sproc.KPISnapshot, error) {
	if s.kpisFn != nil {
		return s.kpisFn(ctx)
	}
	return sproc.KPISnapshot{Socios: 350}, nil
}

type noopAuditor struct{ calls []string }

func (n *noopAuditor) Record(ctx context.Context, action, entity string, entityID *int64, detail map[string]any) {
	n.calls = append(n.calls, action)
}

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	auditor *noopAuditor
}

// newTestAPI wires a server whose only valid login is
// ana@gym.mx / s3cret with the given role and permissions.
func newTestAPI(t *testing.T, role string, perms auth.PermissionSet, store *stubStore, procs *stubProcs, opts ...Option) *testAPI {
	t.Helper()
	if store == nil {
		store = &stubStore{}
	}
	if procs == nil {
		procs = &stubProcs{}
	}
	verifier := &stubVerifier{
		email:    "ana@gym.mx",
		password: "s3cret",
		id:       auth.Identity{ID: 7, Email: "ana@gym.mx", Role: role},
	}
	resolver := &stubResolver{perms: perms, roles: auth.NewRoleList(role)}
	sessions := auth.NewManager(verifier, resolver, []byte("test-secret"))

	auditor := &noopAuditor{}
	api := New(ReadyProbe{}, "test", sessions, store, procs, auditor, opts...)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv, auditor: auditor}
}

func (a *testAPI) login() string {
	a.t.Helper()
	resp := a.post("/v1/auth/login", map[string]any{"email": "ana@gym.mx", "password": "s3cret"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		a.t.Fatalf("decode login response: %v", err)
	}
	return payload.Token
}

func (a *testAPI) do(method, path string, body any, headers map[string]string) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.srv.Client().Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (a *testAPI) post(path string, body any, headers map[string]string) *http.Response {
	return a.do(http.MethodPost, path, body, headers)
}

func (a *testAPI) get(path string, headers map[string]string) *http.Response {
	return a.do(http.MethodGet, path, nil, headers)
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
