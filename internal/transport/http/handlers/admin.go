package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmdrz22/enginner/internal/usecase"
)

// AdminHandler exposes staff-only reporting and broadcast endpoints.
type AdminHandler struct {
	admin         *usecase.AdminService
	notifications *usecase.NotificationService
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(admin *usecase.AdminService, notifications *usecase.NotificationService) *AdminHandler {
	return &AdminHandler{admin: admin, notifications: notifications}
}

// Overview returns per-user task counts.
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to build overview")
		return
	}

	c.JSON(http.StatusOK, newOverviewResponse(overview))
}

// Notify queues an email broadcast and answers 202 without waiting for delivery.
func (h *AdminHandler) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	receipt, err := h.notifications.Enqueue(c.Request.Context(), usecase.NotifyRequest{
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Message:    req.Message,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to queue notification")
		return
	}

	c.JSON(http.StatusAccepted, receipt)
}
