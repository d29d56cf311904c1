package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jobberhq/order-service/internal/notifications"
	"github.com/jobberhq/order-service/internal/orders"
)

type OrdersHandler struct {
	Service *orders.Service
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/{orderId}", h.orderByID)
	r.Get("/seller/{sellerId}", h.sellerOrders)
	r.Get("/buyer/{buyerId}", h.buyerOrders)
	r.Post("/create-payment-intent", h.paymentIntent)
	r.Post("/", h.create)
	r.Put("/cancel/{orderId}", h.cancel)
	r.Put("/approve-order/{orderId}", h.approve)
	r.Put("/extension/{orderId}", h.requestExtension)
	r.Put("/gig/{type}/{orderId}", h.resolveExtension)
	r.Put("/deliver-order/{orderId}", h.deliver)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *orders.ValidationError
	var ue *orders.UploadError
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, notifications.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.As(err, &ue):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File upload error. Try again"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func reqCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var order orders.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if order.OrderID == "" || order.SellerID == "" || order.BuyerID == "" || order.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	created, err := h.Service.Create(ctx, order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   created,
	})
}

type paymentIntentReq struct {
	BuyerID    string  `json:"buyerId"`
	BuyerEmail string  `json:"buyerEmail"`
	Price      float64 `json:"price"`
}

func (h *OrdersHandler) paymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.BuyerEmail == "" || req.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := reqCtx(r, 10*time.Second)
	defer cancel()

	clientSecret, intentID, err := h.Service.CreatePaymentIntent(ctx, req.BuyerEmail, req.BuyerID, req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":         "Order intent created successfully",
		"clientSecret":    clientSecret,
		"paymentIntentId": intentID,
	})
}

type cancelReq struct {
	PaymentIntentID string             `json:"paymentIntentId"`
	OrderData       orders.CancelOrder `json:"orderData"`
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	data := req.OrderData
	data.PaymentIntentID = req.PaymentIntentID

	ctx, cancel := reqCtx(r, 10*time.Second)
	defer cancel()

	if _, err := h.Service.Cancel(ctx, chi.URLParam(r, "orderId"), data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled successfully"})
}

func (h *OrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	var data orders.ApproveOrder
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	order, err := h.Service.Approve(ctx, chi.URLParam(r, "orderId"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order approved successfully",
		"order":   order,
	})
}

func (h *OrdersHandler) requestExtension(w http.ResponseWriter, r *http.Request) {
	var ext orders.RequestExtension
	if err := json.NewDecoder(r.Body).Decode(&ext); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if ext.Days <= 0 || ext.NewDate == "" || ext.OriginalDate == "" || ext.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	order, err := h.Service.RequestExtension(ctx, chi.URLParam(r, "orderId"), ext)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order delivery request extension successfully",
		"order":   order,
	})
}

func (h *OrdersHandler) resolveExtension(w http.ResponseWriter, r *http.Request) {
	var ext orders.RequestExtension
	if err := json.NewDecoder(r.Body).Decode(&ext); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	order, err := h.Service.ResolveExtension(ctx, chi.URLParam(r, "orderId"), chi.URLParam(r, "type"), ext)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order delivery date extension successfully",
		"order":   order,
	})
}

func (h *OrdersHandler) deliver(w http.ResponseWriter, r *http.Request) {
	var work orders.DeliveredWork
	if err := json.NewDecoder(r.Body).Decode(&work); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := reqCtx(r, 30*time.Second)
	defer cancel()

	order, err := h.Service.Deliver(ctx, chi.URLParam(r, "orderId"), work)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order delivered successfully",
		"order":   order,
	})
}

func (h *OrdersHandler) orderByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	order, err := h.Service.OrderByID(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Get order successfully",
		"order":   order,
	})
}

func (h *OrdersHandler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	list, err := h.Service.OrdersBySeller(ctx, chi.URLParam(r, "sellerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Get seller orders successfully",
		"orders":  list,
	})
}

func (h *OrdersHandler) buyerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	list, err := h.Service.OrdersByBuyer(ctx, chi.URLParam(r, "buyerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Get buyer orders successfully",
		"orders":  list,
	})
}
