package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/app"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

// OrderService is the full order surface the transport needs.
type OrderService interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	Pay(ctx context.Context, orderID int64) (domain.Order, error)
	Cancel(ctx context.Context, orderID int64) (domain.Order, error)
	Get(ctx context.Context, orderID int64) (domain.Order, error)
	ListByUser(ctx context.Context, userID int64, status *domain.OrderStatus) ([]domain.Order, error)
}

// HandleOrders serves POST /orders (admission) and GET /orders (the caller's
// own orders). The per-user-per-activity rate limit runs after decoding the
// request and before the service call.
func HandleOrders(svc OrderService, limiter RateLimitChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing caller identity")
			return
		}

		switch r.Method {
		case http.MethodPost:
			createOrder(w, r, svc, limiter, userID)
		case http.MethodGet:
			listOrders(w, r, svc, userID)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func createOrder(w http.ResponseWriter, r *http.Request, svc OrderService, limiter RateLimitChecker, userID int64) {
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.ActivityID <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "activity_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := limiter.Check(r.Context(), app.ScopeUserActivity, userID, req.ActivityID); err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
		ActivityID: req.ActivityID,
		UserID:     userID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

func listOrders(w http.ResponseWriter, r *http.Request, svc OrderService, userID int64) {
	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		switch s {
		case domain.OrderUnpaid, domain.OrderPaid, domain.OrderCancelled:
			status = &s
		default:
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "unknown order status")
			return
		}
	}

	orders, err := svc.ListByUser(r.Context(), userID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleOrderByID serves GET /orders/{id}, POST /orders/{id}/pay and
// POST /orders/{id}/cancel.
func HandleOrderByID(svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, action, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			order, err := svc.Get(r.Context(), orderID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))

		case action == "pay" && r.Method == http.MethodPost:
			order, err := svc.Pay(r.Context(), orderID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))

		case action == "cancel" && r.Method == http.MethodPost:
			order, err := svc.Cancel(r.Context(), orderID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseOrderPath(path string) (int64, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "orders" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	if len(parts) == 2 {
		return id, "", true
	}
	if parts[2] != "pay" && parts[2] != "cancel" {
		return 0, "", false
	}
	return id, parts[2], true
}

type createOrderRequest struct {
	ActivityID int64 `json:"activity_id"`
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
}

type orderResponse struct {
	ID               int64      `json:"id"`
	OrderNo          string     `json:"order_no"`
	UserID           int64      `json:"user_id"`
	ActivityID       int64      `json:"activity_id"`
	ProductID        int64      `json:"product_id"`
	ProductName      string     `json:"product_name"`
	SalePriceCents   int64      `json:"sale_price_cents"`
	Quantity         int        `json:"quantity"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	Status           string     `json:"status"`
	PayTime          *time.Time `json:"pay_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		OrderNo:          o.OrderNo,
		UserID:           o.UserID,
		ActivityID:       o.ActivityID,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		SalePriceCents:   o.SalePriceCents,
		Quantity:         o.Quantity,
		TotalAmountCents: o.TotalAmountCents,
		Status:           string(o.Status),
		PayTime:          o.PayTime,
		CreatedAt:        o.CreatedAt,
	}
}
