package order_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-canteen/internal/auth"
	"ms-canteen/internal/availability"
	"ms-canteen/internal/cart"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/order"
	"ms-canteen/internal/vendor"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService  *order.OrderService
	VendorService *vendor.Service
	Availability  *availability.Calculator
	Logger        *logger.Logger
}

func NewHandler(orderService *order.OrderService, vendorService *vendor.Service, avail *availability.Calculator, log *logger.Logger) *Handler {
	return &Handler{
		OrderService:  orderService,
		VendorService: vendorService,
		Availability:  avail,
		Logger:        log,
	}
}

// CheckoutRequest is the admission payload: a cart, a slot, and how the
// student intends to pay.
type CheckoutRequest struct {
	Items               []cart.Line `json:"items"`
	PickupTime          string      `json:"pickup_time"`
	PaymentMethod       string      `json:"payment_method"`
	SpecialInstructions string      `json:"special_instructions"`
}

type PaymentSuccessRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type SlotConfigRequest struct {
	SlotTime string `json:"slot_time"`
	Capacity *int   `json:"capacity"`
	Blackout *bool  `json:"blackout"`
}

type StatusUpdateRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type RedeemRequest struct {
	OrderNumber string `json:"order_number"`
}

type ScanRequest struct {
	QRData string `json:"qr_data"`
}

// Checkout admits a cart against a pickup slot.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c := cart.FromLines(req.Items)
	placed, err := h.OrderService.PlaceOrder(r.Context(), principal.UserID, c, req.PickupTime, req.PaymentMethod, req.SpecialInstructions)
	if errors.Is(err, order.ErrPaymentGateway) {
		// The order was admitted but the payment intent failed. Return it
		// so the client can retry confirmation against the same order.
		h.Logger.Warn("API", fmt.Sprintf("Checkout: payment gateway failure for order %s: %v", placed.OrderNumber, err))
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": "payment service unavailable, order is pending",
			"order": placed,
		})
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: admission failed: %v", err))
		h.writeError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Checkout: order %s admitted for slot %s", placed.OrderNumber, placed.PickupTime))
	h.writeJSON(w, http.StatusCreated, placed)
}

// SlotAvailability returns the live slot picker snapshot for a vendor.
func (h *Handler) SlotAvailability(w http.ResponseWriter, r *http.Request) {
	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		http.Error(w, "vendor_id query parameter is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.Availability.Compute(r.Context(), vendorID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SlotAvailability: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// PaymentSuccess records a client-reported payment confirmation.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req PaymentSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" {
		http.Error(w, "order_id and payment_id are required", http.StatusBadRequest)
		return
	}

	confirmed, err := h.OrderService.ConfirmPayment(r.Context(), req.OrderID, req.PaymentID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentSuccess: %v", err))
		h.writeError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("PaymentSuccess: order %s confirmed", confirmed.OrderNumber))
	h.writeJSON(w, http.StatusOK, confirmed)
}

// GetOrder returns one order with its line items. Students can only read
// their own orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.OrderService.GetOrder(r.Context(), principal.UserID, orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderData)
}

// MyOrders lists the authenticated student's order history.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	orders, err := h.OrderService.GetStudentOrders(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyOrders: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// VendorOrders lists today's orders for the authenticated vendor's
// dashboard.
func (h *Handler) VendorOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	orders, err := h.OrderService.GetVendorOrders(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("VendorOrders: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// UpdateSlotConfig partially updates one slot policy for the
// authenticated vendor.
func (h *Handler) UpdateSlotConfig(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	var req SlotConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resolved, err := h.VendorService.UpdateSlotConfig(r.Context(), principal.UserID, req.SlotTime, req.Capacity, req.Blackout)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateSlotConfig: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot_time": req.SlotTime,
		"capacity":  resolved.Capacity,
		"blackout":  resolved.Blackout,
	})
}

// SlotUtilization returns the vendor's occupancy analytics for the day.
func (h *Handler) SlotUtilization(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	summary, err := h.Availability.Utilization(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SlotUtilization: %v", err))
		h.writeError(w, err)
		return
	}
	details, err := h.Availability.DetailedUtilization(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SlotUtilization: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"slots":   details,
	})
}

// UpdateOrderStatus moves an order through the vendor lifecycle.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.OrderService.UpdateStatus(r.Context(), principal.UserID, req.OrderID, req.Status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus: %v", err))
		h.writeError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("UpdateOrderStatus: order %s -> %s", updated.OrderNumber, updated.OrderStatus))
	h.writeJSON(w, http.StatusOK, updated)
}

// RedeemOrder marks an order picked up from a manually entered number.
func (h *Handler) RedeemOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	redeemed, err := h.OrderService.Redeem(r.Context(), principal.UserID, req.OrderNumber)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RedeemOrder: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, redeemed)
}

// ScanOrder marks an order picked up from a scanned QR payload.
func (h *Handler) ScanOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	redeemed, err := h.OrderService.RedeemQR(r.Context(), principal.UserID, req.QRData)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ScanOrder: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, redeemed)
}

// Menu returns a vendor's menu for the ordering page.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorId")

	items, err := h.VendorService.Menu(r.Context(), vendorID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Menu: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// ToggleMenuItem flips one menu item's availability for the authenticated
// vendor.
func (h *Handler) ToggleMenuItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "no authenticated principal", http.StatusUnauthorized)
		return
	}
	itemID := chi.URLParam(r, "itemId")

	item, err := h.VendorService.ToggleMenuItem(r.Context(), principal.UserID, itemID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ToggleMenuItem: %v", err))
		h.writeError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("ToggleMenuItem: %s available=%t", item.Name, item.IsAvailable))
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMixedVendorCart),
		errors.Is(err, order.ErrMenuItemUnavailable),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrQRMismatch),
		errors.Is(err, vendor.ErrInvalidSlotConfig):
		status = http.StatusBadRequest
	case errors.Is(err, order.ErrSlotFull),
		errors.Is(err, order.ErrSlotUnavailable),
		errors.Is(err, order.ErrSlotContended),
		errors.Is(err, order.ErrAlreadyRedeemed),
		errors.Is(err, order.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, vendor.ErrNotFound),
		errors.Is(err, vendor.ErrMenuItemNotFound),
		errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, order.ErrWrongVendor),
		errors.Is(err, order.ErrWrongStudent),
		errors.Is(err, vendor.ErrWrongVendor):
		status = http.StatusForbidden
	case errors.Is(err, order.ErrPaymentGateway):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}
