package httpapi

import (
	"net/http"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/store/pg"
)

type registrarPagoRequest struct {
	SocioID    int64  `json:"socio_id"`
	Concepto   string `json:"concepto"`
	Monto      int64  `json:"monto"` // centavos
	Medio      string `json:"medio"`
	RefExterna string `json:"ref_externa"`
}

type refundPagoRequest struct {
	Motivo string `json:"motivo"`
}

func (a *API) handleListPagos(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermPaymentsRead) {
		return
	}
	pagos, err := a.store.ListPagos(r.Context(), pg.PagoFilter{
		Desde: queryDate(r, "desde"),
		Hasta: queryDate(r, "hasta"),
		Medio: r.URL.Query().Get("medio"),
		Limit: queryLimit(r),
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pagos": pagos})
}

func (a *API) handleRegistrarPago(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermPaymentsCreate) {
		return
	}
	var req registrarPagoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SocioID <= 0 || req.Monto <= 0 || req.Concepto == "" || req.Medio == "" {
		writeError(w, r, http.StatusBadRequest, "socio_id, concepto, monto and medio are required")
		return
	}

	res, err := a.procs.RegistrarPago(r.Context(), req.SocioID, req.Concepto, req.Monto, req.Medio, optional(req.RefExterna))
	if err != nil {
		handleProcError(w, r, err)
		return
	}
	pagoID := res.EntityID.Int64
	a.audit(r.Context(), "pago_alta", "pago", &pagoID, map[string]any{
		"socio_id": req.SocioID,
		"monto":    req.Monto,
		"medio":    req.Medio,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"pago_id": pagoID})
}

func (a *API) handleRefundPago(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermPaymentsRefund) {
		return
	}
	pagoID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req refundPagoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Motivo == "" {
		writeError(w, r, http.StatusBadRequest, "motivo is required")
		return
	}

	refundID, err := a.store.RefundPago(r.Context(), pagoID, req.Motivo)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "pago_reembolso", "pago", &pagoID, map[string]any{
		"reembolso_id": refundID,
		"motivo":       req.Motivo,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"reembolso_id": refundID})
}

func (a *API) handleReportPagos(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermReportsView) {
		return
	}
	days := queryLimit(r)
	report, err := a.store.ReportIngresos(r.Context(), days)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingresos": report})
}
