package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if !bindJSON(c, &input) {
		return
	}

	issued, err := h.auth.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Token:   issued.Token,
		User:    *issued.User,
		Message: "User registered successfully",
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if !bindJSON(c, &input) {
		return
	}

	issued, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token:   issued.Token,
		User:    *issued.User,
		Message: "Login successful",
	})
}

// Session establishes the client's session at startup. A token in the body
// or Authorization header resumes that session; without one an anonymous
// session is issued.
func (h *AuthHandler) Session(c *gin.Context) {
	var input struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error(), nil))
		return
	}
	token := input.Token
	if token == "" {
		token = middleware.BearerToken(c)
	}

	issued, err := h.auth.Establish(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issued)
}

// GetMe returns the current session and, for signed-in users, their account
func (h *AuthHandler) GetMe(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if session.Anonymous {
		c.JSON(http.StatusOK, gin.H{"session": session})
		return
	}

	user, err := h.auth.User(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "user": user})
}
