package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/api/middleware"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/orders"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/payment/shurjopay"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/sales"
)

type Handlers struct {
	orders *orders.Service
	sales  *sales.Aggregator
}

func NewHandlers(orderService *orders.Service, salesAggregator *sales.Aggregator) *Handlers {
	return &Handlers{
		orders: orderService,
		sales:  salesAggregator,
	}
}

// Order Handlers

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.orders.Create(r.Context(), middleware.GetUserID(r.Context()), in, clientIP(r))
	if err != nil {
		if result != nil {
			// The order was committed but payment initiation failed; surface
			// both so the client can retry through verification.
			respondJSON(w, http.StatusBadGateway, envelope{
				Success: false,
				Message: "Order created but payment initiation failed",
				Data:    result,
			})
			return
		}
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Order created successfully", result)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	spOrderID := r.URL.Query().Get("order_id")
	if spOrderID == "" {
		respondError(w, "order_id is required", http.StatusBadRequest)
		return
	}

	records, err := h.orders.VerifyPayment(r.Context(), spOrderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order verified successfully", records)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := store.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		UserID:        q.Get("user_id"),
	}

	paged, err := h.orders.List(r.Context(), page, limit, filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Orders retrieved successfully",
		Data:    paged.Data,
		Meta:    paged.Meta,
	})
}

func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*order.Order{}
	}

	respondSuccess(w, http.StatusOK, "Orders retrieved successfully", list)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := orderIDFromPath(r.URL.Path)

	o, err := h.orders.Get(r.Context(), id, callerFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order retrieved successfully", o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := orderIDFromPath(r.URL.Path)

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order status updated successfully", o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := orderIDFromPath(r.URL.Path)

	o, err := h.orders.CancelOwn(r.Context(), id, middleware.GetUserID(r.Context()), order.StatusCancelled)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order cancelled successfully", o)
}

func (h *Handlers) SoftDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := orderIDFromPath(r.URL.Path)

	o, err := h.orders.SoftDelete(r.Context(), id, callerFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order deleted successfully", o)
}

// Sales Handlers

func (h *Handlers) SalesDashboard(w http.ResponseWriter, r *http.Request) {
	report, err := h.sales.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Sales data retrieved successfully", report)
}

// Helper functions

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, envelope{Success: false, Message: message})
}

// respondServiceError maps core errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, user.ErrUserNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, orders.ErrUnauthorized):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, shurjopay.ErrGateway):
		respondError(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidPrice),
		errors.Is(err, order.ErrInvalidAddress),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, product.ErrInsufficientStock):
		respondError(w, err.Error(), http.StatusBadRequest)
	default:
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

// orderIDFromPath extracts the order id from /api/orders/{id}[/action]
func orderIDFromPath(path string) string {
	id := strings.TrimPrefix(path, "/api/orders/")
	id = strings.TrimSuffix(id, "/cancel")
	id = strings.TrimSuffix(id, "/soft-delete")
	return id
}

func callerFrom(r *http.Request) orders.Caller {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return orders.Caller{}
	}
	return orders.Caller{UserID: claims.UserID, Role: claims.Role}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
