package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

// NotificationHandler lists booking notifications.
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications godoc
// GET /api/v1/notifications?limit=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	notifications, err := h.notificationService.ListMine(c.Request.Context(), cl.UserID, limit)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notifications": notifications})
}
