package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
)

type NotificationHandler struct {
	forum *forum.Service
}

func NewNotificationHandler(f *forum.Service) *NotificationHandler {
	return &NotificationHandler{forum: f}
}

// GetNotifications returns the caller's feed with its unread count
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	feed, err := h.forum.ListNotifications(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// MarkRead marks one of the caller's notifications read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.forum.MarkRead(c.Request.Context(), middleware.CurrentSession(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
