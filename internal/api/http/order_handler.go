package http

import (
	"context"
	"net/http"
	"strings"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/service"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	UserID int32 `json:"user_id"` // zero orders for the caller
	GameID int32 `json:"game_id"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.CreateOrder(r.Context(), CallerFromContext(r.Context()), req.UserID, req.GameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.AcceptOrder)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.CancelOrder)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := fn(r.Context(), CallerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.GetOrder(r.Context(), CallerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt32(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.OrderFilter{
		UserID: userID,
		Status: domain.OrderStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	orders, err := h.orders.ListOrders(r.Context(), CallerFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
