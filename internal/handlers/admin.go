package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
)

type AdminHandler struct {
	forum *forum.Service
}

func NewAdminHandler(f *forum.Service) *AdminHandler {
	return &AdminHandler{forum: f}
}

// GetUsers lists every account (admin only)
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.forum.ListUsers(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ToggleBan bans or unbans a user (admin only)
func (h *AdminHandler) ToggleBan(c *gin.Context) {
	user, err := h.forum.ToggleBan(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteQuestion removes a question with its answers and votes (admin only)
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	if err := h.forum.DeleteQuestion(c.Request.Context(), middleware.CurrentSession(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}
