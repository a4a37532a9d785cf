package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
)

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the request body, answering 400 on failure
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error(), nil))
		return false
	}
	return true
}
