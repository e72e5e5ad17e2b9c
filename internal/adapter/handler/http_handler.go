package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/core/service"
	"github.com/remate/marketplace/internal/port"
	"github.com/remate/marketplace/pkg/logging"
	"github.com/remate/marketplace/pkg/metrics"
)

// userHeader carries the already-authenticated principal. Token
// issuance and verification happen upstream; this service only needs
// the asserted identity.
const userHeader = "X-User-ID"

const adminHeader = "X-Admin-Token"

type HTTPHandler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	metrics  *metrics.ServerMetrics

	// adminToken guards back-office routes. Empty disables them.
	adminToken string
}

func NewHTTPHandler(carts *service.CartService, checkout *service.CheckoutService, orders *service.OrderService, m *metrics.ServerMetrics, adminToken string) *HTTPHandler {
	return &HTTPHandler{carts: carts, checkout: checkout, orders: orders, metrics: m, adminToken: adminToken}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ordenes/checkout", h.instrument("checkout", h.requireUser(h.handleCheckout)))
	mux.HandleFunc("GET /api/ordenes", h.instrument("list_orders", h.requireUser(h.handleListOrders)))
	mux.HandleFunc("GET /api/ordenes/{id}", h.instrument("get_order", h.requireUser(h.handleGetOrder)))
	mux.HandleFunc("GET /api/ordenes/codigo/{codigo}", h.instrument("track_order", h.handleTrackOrder))
	mux.HandleFunc("PUT /api/ordenes/{id}/cancelar", h.instrument("cancel_order", h.requireUser(h.handleCancelOrder)))
	mux.HandleFunc("PUT /api/ordenes/{id}/confirmar", h.instrument("confirm_delivery", h.requireUser(h.handleConfirmDelivery)))
	mux.HandleFunc("PUT /api/ordenes/{id}/enviar", h.instrument("ship_order", h.requireAdmin(h.handleShipOrder)))

	mux.HandleFunc("GET /api/carrito", h.instrument("get_cart", h.requireUser(h.handleGetCart)))
	mux.HandleFunc("POST /api/carrito/items", h.instrument("add_cart_item", h.requireUser(h.handleAddCartItem)))
	mux.HandleFunc("PUT /api/carrito/items/{id}", h.instrument("update_cart_item", h.requireUser(h.handleUpdateCartItem)))
	mux.HandleFunc("DELETE /api/carrito/items/{id}", h.instrument("remove_cart_item", h.requireUser(h.handleRemoveCartItem)))
	mux.HandleFunc("DELETE /api/carrito", h.instrument("clear_cart", h.requireUser(h.handleClearCart)))

	mux.HandleFunc("GET /health", h.HealthCheck)
}

// Envelope: every response carries exito/mensaje; errors add a stable
// codigo tag which is the authoritative signal for clients.
type envelope struct {
	Exito   bool   `json:"exito"`
	Mensaje string `json:"mensaje"`
	Data    any    `json:"data,omitempty"`
	Codigo  string `json:"codigo,omitempty"`
}

// Request DTOs

type cardRequest struct {
	Titular         string `json:"titular"`
	Numero          string `json:"numero"`
	MesVencimiento  int    `json:"mes_vencimiento"`
	AnioVencimiento int    `json:"anio_vencimiento"`
	CVV             string `json:"cvv"`
}

type checkoutRequest struct {
	Nombre       string       `json:"nombre"`
	Direccion    string       `json:"direccion"`
	Ciudad       string       `json:"ciudad"`
	CodigoPostal string       `json:"codigo_postal"`
	Telefono     string       `json:"telefono"`
	MetodoEnvio  string       `json:"metodo_envio"`
	MetodoPago   string       `json:"metodo_pago"`
	Tarjeta      *cardRequest `json:"tarjeta,omitempty"`
	Comprobante  string       `json:"comprobante,omitempty"`

	// Accepted for client compatibility; the server-side cart snapshot
	// is the authoritative source of checkout lines.
	Items []struct {
		ProductoID string `json:"producto_id"`
		Cantidad   int    `json:"cantidad"`
	} `json:"items,omitempty"`
}

type cartItemRequest struct {
	ProductoID string `json:"producto_id"`
	Cantidad   int    `json:"cantidad"`
}

type updateItemRequest struct {
	Cantidad int `json:"cantidad"`
}

// Response DTOs

type cartItemView struct {
	ItemID         string          `json:"item_id"`
	ProductoID     string          `json:"producto_id"`
	Titulo         string          `json:"titulo"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Items    []cartItemView  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type orderSummaryView struct {
	OrdenID       string          `json:"orden_id"`
	CodigoOrden   string          `json:"codigo_orden"`
	Estado        string          `json:"estado"`
	Total         decimal.Decimal `json:"total"`
	FechaCreacion time.Time       `json:"fecha_creacion"`
}

type paymentView struct {
	Estado         string `json:"estado"`
	Referencia     string `json:"referencia,omitempty"`
	UltimosDigitos string `json:"ultimos_digitos,omitempty"`
	Detalle        string `json:"detalle,omitempty"`
}

type checkoutResponse struct {
	Orden orderSummaryView `json:"orden"`
	Pago  paymentView      `json:"pago"`
}

type addressView struct {
	Nombre       string `json:"nombre"`
	Direccion    string `json:"direccion"`
	Ciudad       string `json:"ciudad"`
	CodigoPostal string `json:"codigo_postal"`
	Telefono     string `json:"telefono"`
}

type orderItemView struct {
	ProductoID     string          `json:"producto_id"`
	Titulo         string          `json:"titulo"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type orderDetailView struct {
	OrdenID        string          `json:"orden_id"`
	CodigoOrden    string          `json:"codigo_orden"`
	Estado         string          `json:"estado"`
	Items          []orderItemView `json:"items"`
	Direccion      addressView     `json:"direccion"`
	MetodoEnvio    string          `json:"metodo_envio"`
	MetodoPago     string          `json:"metodo_pago"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CostoEnvio     decimal.Decimal `json:"costo_envio"`
	Impuesto       decimal.Decimal `json:"impuesto"`
	Descuento      decimal.Decimal `json:"descuento"`
	Total          decimal.Decimal `json:"total"`
	FechaCreacion  time.Time       `json:"fecha_creacion"`
	FechaPago      *time.Time      `json:"fecha_pago,omitempty"`
	FechaEnvio     *time.Time      `json:"fecha_envio,omitempty"`
	FechaEntrega   *time.Time      `json:"fecha_entrega,omitempty"`
	FechaCancelado *time.Time      `json:"fecha_cancelacion,omitempty"`
}

// trackingResponse is the public projection: no address beyond the
// city, no payment data, no line item prices.
type trackingResponse struct {
	CodigoOrden    string          `json:"codigo_orden"`
	Estado         string          `json:"estado"`
	CantidadItems  int             `json:"cantidad_items"`
	Total          decimal.Decimal `json:"total"`
	Ciudad         string          `json:"ciudad"`
	FechaCreacion  time.Time       `json:"fecha_creacion"`
	FechaPago      *time.Time      `json:"fecha_pago,omitempty"`
	FechaEnvio     *time.Time      `json:"fecha_envio,omitempty"`
	FechaEntrega   *time.Time      `json:"fecha_entrega,omitempty"`
	FechaCancelado *time.Time      `json:"fecha_cancelacion,omitempty"`
}

type orderListResponse struct {
	Ordenes []orderSummaryView `json:"ordenes"`
	Total   int                `json:"total"`
	Pagina  int                `json:"pagina"`
	Limite  int                `json:"limite"`
}

// Handlers

func (h *HTTPHandler) handleCheckout(w http.ResponseWriter, r *http.Request, userID string) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cuerpo de solicitud inválido")
		return
	}

	in := service.CheckoutInput{
		Shipping: domain.ShippingAddress{
			Name:       req.Nombre,
			Address:    req.Direccion,
			City:       req.Ciudad,
			PostalCode: req.CodigoPostal,
			Phone:      req.Telefono,
		},
		ShippingMethod: domain.ShippingMethod(req.MetodoEnvio),
		PaymentMethod:  domain.PaymentMethod(req.MetodoPago),
		TransferProof:  req.Comprobante,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if req.Tarjeta != nil {
		in.Card = &domain.CardDetails{
			HolderName: req.Tarjeta.Titular,
			Number:     req.Tarjeta.Numero,
			ExpMonth:   req.Tarjeta.MesVencimiento,
			ExpYear:    req.Tarjeta.AnioVencimiento,
			CVV:        req.Tarjeta.CVV,
		}
	}

	result, err := h.checkout.Checkout(r.Context(), userID, in)
	if err != nil {
		h.writeServiceError(w, err)
		h.countCheckout("error")
		return
	}
	h.countCheckout(result.Payment.Status)

	writeJSON(w, http.StatusCreated, envelope{
		Exito:   true,
		Mensaje: "orden creada",
		Data: checkoutResponse{
			Orden: summaryView(result.Order),
			Pago: paymentView{
				Estado:         result.Payment.Status,
				Referencia:     result.Payment.Reference,
				UltimosDigitos: result.Payment.LastFour,
				Detalle:        result.Payment.Detail,
			},
		},
	})
}

func (h *HTTPHandler) handleListOrders(w http.ResponseWriter, r *http.Request, userID string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := port.OrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: domain.OrderStatus(r.URL.Query().Get("estado")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "estado desconocido")
		return
	}

	orders, total, err := h.orders.List(r.Context(), userID, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]orderSummaryView, 0, len(orders))
	for i := range orders {
		views = append(views, summaryView(&orders[i]))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	writeJSON(w, http.StatusOK, envelope{
		Exito:   true,
		Mensaje: "ordenes",
		Data:    orderListResponse{Ordenes: views, Total: total, Pagina: filter.Page, Limite: filter.Limit},
	})
}

func (h *HTTPHandler) handleGetOrder(w http.ResponseWriter, r *http.Request, userID string) {
	order, err := h.orders.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "orden", Data: detailView(order)})
}

func (h *HTTPHandler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Track(r.Context(), r.PathValue("codigo"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Exito:   true,
		Mensaje: "seguimiento",
		Data: trackingResponse{
			CodigoOrden:    view.TrackingCode,
			Estado:         string(view.Status),
			CantidadItems:  view.ItemCount,
			Total:          view.Total,
			Ciudad:         view.City,
			FechaCreacion:  view.CreatedAt,
			FechaPago:      view.PaidAt,
			FechaEnvio:     view.ShippedAt,
			FechaEntrega:   view.DeliveredAt,
			FechaCancelado: view.CancelledAt,
		},
	})
}

func (h *HTTPHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.orders.Cancel(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "orden cancelada"})
}

func (h *HTTPHandler) handleConfirmDelivery(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.orders.ConfirmDelivery(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "entrega confirmada"})
}

func (h *HTTPHandler) handleShipOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Ship(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "orden enviada"})
}

func (h *HTTPHandler) handleGetCart(w http.ResponseWriter, r *http.Request, userID string) {
	cart, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "carrito", Data: cartToView(cart)})
}

func (h *HTTPHandler) handleAddCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cuerpo de solicitud inválido")
		return
	}
	if req.ProductoID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "producto_id requerido")
		return
	}

	item, err := h.carts.AddItem(r.Context(), userID, req.ProductoID, req.Cantidad)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Exito: true, Mensaje: "producto agregado", Data: itemToView(item)})
}

func (h *HTTPHandler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cuerpo de solicitud inválido")
		return
	}

	item, err := h.carts.UpdateItem(r.Context(), userID, r.PathValue("id"), req.Cantidad)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "cantidad actualizada", Data: itemToView(item)})
}

func (h *HTTPHandler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.carts.RemoveItem(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "producto eliminado"})
}

func (h *HTTPHandler) handleClearCart(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.carts.Clear(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Exito: true, Mensaje: "carrito vaciado"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Middleware

type userHandlerFunc func(http.ResponseWriter, *http.Request, string)

func (h *HTTPHandler) requireUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "autenticación requerida")
			return
		}
		next(w, r, userID)
	}
}

func (h *HTTPHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" || r.Header.Get(adminHeader) != h.adminToken {
			writeError(w, http.StatusForbidden, "ACCESS_DENIED", "acceso restringido")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *HTTPHandler) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	if h.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		h.metrics.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (h *HTTPHandler) countCheckout(outcome string) {
	if h.metrics != nil {
		h.metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
}

// Error mapping: the codigo tag is what clients dispatch on, the HTTP
// status is coarse.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, "EMPTY_ORDER", "el carrito está vacío")
	case errors.Is(err, service.ErrMissingShippingInfo):
		writeError(w, http.StatusBadRequest, "MISSING_SHIPPING_INFO", "faltan datos de envío")
	case errors.Is(err, service.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_STOCK", "stock insuficiente")
	case errors.Is(err, service.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cantidad inválida")
	case errors.Is(err, service.ErrProductUnavailable):
		writeError(w, http.StatusBadRequest, "PRODUCT_UNAVAILABLE", "producto no disponible")
	case errors.Is(err, service.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "producto no encontrado")
	case errors.Is(err, service.ErrCartItemNotFound):
		writeError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "producto no está en el carrito")
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "orden no encontrada")
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "no autorizado")
	case errors.Is(err, service.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "DUPLICATE_REQUEST", "solicitud duplicada")
	default:
		logging.Log(logging.Fields{Service: "http", Step: "request", Status: "error", Error: err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "error interno")
	}
}

// View builders

func summaryView(order *domain.Order) orderSummaryView {
	return orderSummaryView{
		OrdenID:       order.ID,
		CodigoOrden:   order.TrackingCode,
		Estado:        string(order.Status),
		Total:         order.Total,
		FechaCreacion: order.CreatedAt,
	}
}

func detailView(order *domain.Order) orderDetailView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ProductoID:     item.ProductID,
			Titulo:         item.Title,
			Cantidad:       item.Quantity,
			PrecioUnitario: item.UnitPrice,
			Subtotal:       item.Subtotal,
		})
	}
	return orderDetailView{
		OrdenID:     order.ID,
		CodigoOrden: order.TrackingCode,
		Estado:      string(order.Status),
		Items:       items,
		Direccion: addressView{
			Nombre:       order.Shipping.Name,
			Direccion:    order.Shipping.Address,
			Ciudad:       order.Shipping.City,
			CodigoPostal: order.Shipping.PostalCode,
			Telefono:     order.Shipping.Phone,
		},
		MetodoEnvio:    string(order.ShippingMethod),
		MetodoPago:     string(order.PaymentMethod),
		Subtotal:       order.Subtotal,
		CostoEnvio:     order.ShippingCost,
		Impuesto:       order.Tax,
		Descuento:      order.Discount,
		Total:          order.Total,
		FechaCreacion:  order.CreatedAt,
		FechaPago:      order.PaidAt,
		FechaEnvio:     order.ShippedAt,
		FechaEntrega:   order.DeliveredAt,
		FechaCancelado: order.CancelledAt,
	}
}

func cartToView(cart *domain.Cart) cartView {
	items := make([]cartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, itemToView(&item))
	}
	return cartView{Items: items, Subtotal: cart.Subtotal()}
}

func itemToView(item *domain.CartItem) cartItemView {
	return cartItemView{
		ItemID:         item.ID,
		ProductoID:     item.ProductID,
		Titulo:         item.Title,
		Cantidad:       item.Quantity,
		PrecioUnitario: item.UnitPrice,
		Subtotal:       item.Subtotal(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, codigo, mensaje string) {
	writeJSON(w, status, envelope{Exito: false, Mensaje: mensaje, Codigo: codigo})
}
