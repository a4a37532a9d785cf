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

type AnswerHandler struct {
	forum  *forum.Service
	ledger *ledger.Ledger
}

func NewAnswerHandler(f *forum.Service, l *ledger.Ledger) *AnswerHandler {
	return &AnswerHandler{forum: f, ledger: l}
}

// GetAnswers returns the answers of a question, accepted answer first
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	answers, err := h.forum.ListAnswers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// CreateAnswer posts an answer to a question (PROTECTED - requires authentication)
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	var input models.CreateAnswerRequest
	if !bindJSON(c, &input) {
		return
	}

	answer, err := h.forum.CreateAnswer(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}

// VoteAnswer casts, switches or retracts the caller's vote on an answer
func (h *AnswerHandler) VoteAnswer(c *gin.Context) {
	var input models.VoteRequest
	if !bindJSON(c, &input) {
		return
	}

	polarity, err := models.ParsePolarity(input.Polarity)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error(), nil))
		return
	}

	result, err := h.ledger.CastVote(c.Request.Context(), middleware.CurrentSession(c), c.Param("answerId"), polarity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMyVotes returns the caller's vote per answer of a question
func (h *AnswerHandler) GetMyVotes(c *gin.Context) {
	votes, err := h.forum.MyVotes(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}
