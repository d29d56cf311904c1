package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jobberhq/order-service/internal/notifications"
)

type NotificationsHandler struct {
	Service *notifications.Service
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/notification/{userTo}", h.byRecipient)
	r.Put("/notification/mark-as-read", h.markAsRead)
}

func (h *NotificationsHandler) byRecipient(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	list, err := h.Service.ByRecipient(ctx, chi.URLParam(r, "userTo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Get notifications successfully",
		"notifications": list,
	})
}

type markAsReadReq struct {
	NotificationID string `json:"notificationId"`
}

func (h *NotificationsHandler) markAsRead(w http.ResponseWriter, r *http.Request) {
	var req markAsReadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NotificationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing notificationId"})
		return
	}

	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	n, err := h.Service.MarkAsRead(ctx, req.NotificationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Notification marked as read",
		"notification": n,
	})
}
