package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type QuestionHandler struct {
	forum  *forum.Service
	ledger *ledger.Ledger
}

func NewQuestionHandler(f *forum.Service, l *ledger.Ledger) *QuestionHandler {
	return &QuestionHandler{forum: f, ledger: l}
}

// GetQuestions returns questions newest first, optionally filtered by tag
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	var filter forum.QuestionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error(), nil))
		return
	}

	questions, err := h.forum.ListQuestions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// GetQuestion returns a single question by ID
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	question, err := h.forum.GetQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// CreateQuestion creates a new question (PROTECTED - requires authentication)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input models.CreateQuestionRequest
	if !bindJSON(c, &input) {
		return
	}

	question, err := h.forum.CreateQuestion(c.Request.Context(), middleware.CurrentSession(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// AcceptAnswer toggles the accepted answer of a question (author only)
func (h *QuestionHandler) AcceptAnswer(c *gin.Context) {
	var input models.AcceptAnswerRequest
	if !bindJSON(c, &input) {
		return
	}

	result, err := h.ledger.AcceptAnswer(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), input.AnswerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
