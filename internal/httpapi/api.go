// Package httpapi is the HTTP boundary of the back office. Every
// route is gated by the session manager; facility scoping and audit
// happen behind the handlers.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/obs"
	"gymops.dev/internal/sproc"
	"gymops.dev/internal/store/pg"
	"gymops.dev/internal/stream"
)

// ReadyProbe reports whether the service can take traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// DataStore is the query/admin surface the handlers read from.
type DataStore interface {
	SearchSocios(ctx context.Context, q string, limit int) ([]pg.Socio, error)
	GetSocio(ctx context.Context, id int64) (pg.Socio, error)
	UpdateSocio(ctx context.Context, id int64, upd pg.SocioUpdate) (pg.Socio, error)
	DeleteSocio(ctx context.Context, id int64) error
	ListSedes(ctx context.Context) ([]pg.Sede, error)

	ListPlanes(ctx context.Context) ([]pg.Plan, error)
	CreatePlan(ctx context.Context, p pg.Plan) (pg.Plan, error)
	ListMembresias(ctx context.Context, limit int) ([]pg.Membresia, error)
	ListClases(ctx context.Context, limit int) ([]pg.Clase, error)
	ListAccesosAbiertos(ctx context.Context, limit int) ([]pg.Acceso, error)

	ListPagos(ctx context.Context, f pg.PagoFilter) ([]pg.Pago, error)
	ReportIngresos(ctx context.Context, days int) ([]pg.IngresosPorDia, error)
	RefundPago(ctx context.Context, pagoID int64, motivo string) (int64, error)

	ListProductos(ctx context.Context, soloActivos bool, limit int) ([]pg.Producto, error)
	CreateProducto(ctx context.Context, p pg.Producto) (pg.Producto, error)
	ListVentas(ctx context.Context, limit int) ([]pg.Venta, error)
	CreateVenta(ctx context.Context, socioID int64, sedeID *int64, items []pg.VentaItem) (int64, error)
	RefundVenta(ctx context.Context, ventaID int64) error

	CreateAppUser(ctx context.Context, email, password, rol string, sedeID *int64) (pg.AppUser, error)
	UpdateAppUser(ctx context.Context, id int64, rol string, sedeID *int64) error
	ListAppUsers(ctx context.Context) ([]pg.AppUser, error)
	ListAuditoria(ctx context.Context, f pg.AuditFilter) ([]pg.AuditEntry, error)
}

// Procs is the stored-procedure surface behind the mutating routes.
type Procs interface {
	AltaSocio(ctx context.Context, dni, nombre, email, telefono *string) (sproc.Result, error)
	CrearMembresia(ctx context.Context, socioID, planID int64, fechaInicio time.Time) (sproc.Result, error)
	RegistrarPago(ctx context.Context, socioID int64, concepto string, monto int64, medio string, refExterna *string) (sproc.Result, error)
	PublicarClase(ctx context.Context, sedeID int64, nombre string, fechaHora time.Time, capacidad int) (sproc.Result, error)
	ReservarClase(ctx context.Context, socioID, claseID int64) (sproc.Result, error)
	CheckinClase(ctx context.Context, reservaID int64) (sproc.Result, error)
	RegistrarAcceso(ctx context.Context, socioID, sedeID int64) (sproc.Result, error)
	RegistrarSalida(ctx context.Context, accesoID int64) (sproc.Result, error)
	AforoActual(ctx context.Context, sedeID int64) (int, error)
	KPIs(ctx context.Context) (sproc.KPISnapshot, error)
}

// Auditor records business events. *audit.Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, action, entity string, entityID *int64, detail map[string]any)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	sessions *auth.Manager
	store    DataStore
	procs    Procs
	auditor  Auditor
	stream   *stream.Stream

	rateBurst  int
	ratePerSec int
}

// Option configures the API.
type Option func(*API)

// WithRateLimit overrides the per-IP limiter settings.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

// WithStream enables the live access-event feed.
func WithStream(s *stream.Stream) Option {
	return func(a *API) { a.stream = s }
}

func New(rp ReadyProbe, version string, sessions *auth.Manager, store DataStore, procs Procs, auditor Auditor, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		sessions:   sessions,
		store:      store,
		procs:      procs,
		auditor:    auditor,
		rateBurst:  40,
		ratePerSec: 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)

	a.mux.HandleFunc("GET /v1/socios", a.handleListSocios)
	a.mux.HandleFunc("POST /v1/socios", a.handleCreateSocio)
	a.mux.HandleFunc("GET /v1/socios/{id}", a.handleGetSocio)
	a.mux.HandleFunc("PUT /v1/socios/{id}", a.handleUpdateSocio)
	a.mux.HandleFunc("DELETE /v1/socios/{id}", a.handleDeleteSocio)
	a.mux.HandleFunc("GET /v1/sedes", a.handleListSedes)

	a.mux.HandleFunc("GET /v1/planes", a.handleListPlanes)
	a.mux.HandleFunc("POST /v1/planes", a.handleCreatePlan)
	a.mux.HandleFunc("GET /v1/membresias", a.handleListMembresias)
	a.mux.HandleFunc("POST /v1/membresias", a.handleCreateMembresia)

	a.mux.HandleFunc("GET /v1/clases", a.handleListClases)
	a.mux.HandleFunc("POST /v1/clases", a.handlePublicarClase)
	a.mux.HandleFunc("POST /v1/clases/{id}/reservas", a.handleReservarClase)
	a.mux.HandleFunc("POST /v1/reservas/{id}/checkin", a.handleCheckinClase)

	a.mux.HandleFunc("GET /v1/accesos", a.handleListAccesos)
	a.mux.HandleFunc("POST /v1/accesos", a.handleRegistrarAcceso)
	a.mux.HandleFunc("POST /v1/accesos/{id}/salida", a.handleRegistrarSalida)
	a.mux.HandleFunc("GET /v1/sedes/{id}/aforo", a.handleAforo)
	a.mux.HandleFunc("GET /v1/sedes/{id}/aforo/stream", a.handleAforoStream)

	a.mux.HandleFunc("GET /v1/pagos", a.handleListPagos)
	a.mux.HandleFunc("POST /v1/pagos", a.handleRegistrarPago)
	a.mux.HandleFunc("POST /v1/pagos/{id}/reembolso", a.handleRefundPago)

	a.mux.HandleFunc("GET /v1/productos", a.handleListProductos)
	a.mux.HandleFunc("POST /v1/productos", a.handleCreateProducto)
	a.mux.HandleFunc("GET /v1/ventas", a.handleListVentas)
	a.mux.HandleFunc("POST /v1/ventas", a.handleCreateVenta)
	a.mux.HandleFunc("POST /v1/ventas/{id}/reembolso", a.handleRefundVenta)

	a.mux.HandleFunc("GET /v1/kpis", a.handleKPIs)
	a.mux.HandleFunc("GET /v1/reportes/pagos", a.handleReportPagos)
	a.mux.HandleFunc("GET /v1/usuarios", a.handleListUsuarios)
	a.mux.HandleFunc("POST /v1/usuarios", a.handleCreateUsuario)
	a.mux.HandleFunc("PUT /v1/usuarios/{id}", a.handleUpdateUsuario)
	a.mux.HandleFunc("GET /v1/auditoria", a.handleListAuditoria)

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// audit records an event if a recorder is wired.
func (a *API) audit(ctx context.Context, action, entity string, entityID *int64, detail map[string]any) {
	if a.auditor == nil {
		return
	}
	a.auditor.Record(ctx, action, entity, entityID, detail)
}
