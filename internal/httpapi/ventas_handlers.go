package httpapi

import (
	"net/http"

	"gymops.dev/internal/auth"
	"gymops.dev/internal/store/pg"
)

type createProductoRequest struct {
	Nombre string `json:"nombre"`
	Precio int64  `json:"precio"` // centavos
	Stock  int    `json:"stock"`
	Activo bool   `json:"activo"`
}

type createVentaRequest struct {
	SocioID int64 `json:"socio_id"`
	Items   []struct {
		ProductoID int64 `json:"producto_id"`
		Cantidad   int   `json:"cantidad"`
	} `json:"items"`
}

func (a *API) handleListProductos(w http.ResponseWriter, r *http.Request) {
	if !a.loggedIn(w, r) {
		return
	}
	soloActivos := r.URL.Query().Get("activos") == "true"
	productos, err := a.store.ListProductos(r.Context(), soloActivos, queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productos": productos})
}

func (a *API) handleCreateProducto(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermProductsManage) {
		return
	}
	var req createProductoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Nombre == "" || req.Precio <= 0 || req.Stock < 0 {
		writeError(w, r, http.StatusBadRequest, "nombre and a positive precio are required")
		return
	}

	producto, err := a.store.CreateProducto(r.Context(), pg.Producto{
		Nombre: req.Nombre,
		Precio: req.Precio,
		Stock:  req.Stock,
		Activo: req.Activo,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "producto_alta", "producto", &producto.ID, map[string]any{"nombre": producto.Nombre})
	writeJSON(w, http.StatusCreated, producto)
}

func (a *API) handleListVentas(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSalesRead) {
		return
	}
	ventas, err := a.store.ListVentas(r.Context(), queryLimit(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ventas": ventas})
}

func (a *API) handleCreateVenta(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSalesCreate) {
		return
	}
	var req createVentaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SocioID <= 0 || len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "socio_id and items are required")
		return
	}

	items := make([]pg.VentaItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductoID <= 0 || it.Cantidad <= 0 {
			writeError(w, r, http.StatusBadRequest, "every item needs producto_id and cantidad")
			return
		}
		items = append(items, pg.VentaItem{ProductoID: it.ProductoID, Cantidad: it.Cantidad})
	}

	// The sale lands on the seller's facility.
	var sedeID *int64
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		sedeID = sess.Identity.FacilityID
	}

	ventaID, err := a.store.CreateVenta(r.Context(), req.SocioID, sedeID, items)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "venta_alta", "venta", &ventaID, map[string]any{
		"socio_id": req.SocioID,
		"items":    len(items),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"venta_id": ventaID})
}

func (a *API) handleRefundVenta(w http.ResponseWriter, r *http.Request) {
	if !a.require(w, r, auth.PermSalesRefund) {
		return
	}
	ventaID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.RefundVenta(r.Context(), ventaID); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "venta_reembolso", "venta", &ventaID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"venta_id": ventaID, "estado": "reembolsada"})
}
