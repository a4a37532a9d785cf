package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const defaultHeartbeat = 25 * time.Second

// LiveHandler streams live query snapshots as Server-Sent Events
type LiveHandler struct {
	hub       *live.Hub
	forum     *forum.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewLiveHandler(hub *live.Hub, f *forum.Service, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{hub: hub, forum: f, logger: logger, heartbeat: defaultHeartbeat}
}

// QuestionThread is the snapshot of the answers stream
type QuestionThread struct {
	Question *models.Question           `json:"question"`
	Answers  []models.Answer            `json:"answers"`
	MyVotes  map[string]models.Polarity `json:"my_votes"`
}

// Questions streams the question list
func (h *LiveHandler) Questions(c *gin.Context) {
	var filter forum.QuestionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error(), nil))
		return
	}

	h.stream(c, live.TopicQuestions, func(ctx context.Context) (any, error) {
		return h.forum.ListQuestions(ctx, filter)
	})
}

// Answers streams a question with its answers and the caller's votes
func (h *LiveHandler) Answers(c *gin.Context) {
	questionID := c.Param("id")
	session := middleware.CurrentSession(c)

	if _, err := h.forum.GetQuestion(c.Request.Context(), questionID); err != nil {
		respondError(c, err)
		return
	}

	h.stream(c, live.AnswersTopic(questionID), func(ctx context.Context) (any, error) {
		return h.thread(ctx, session, questionID)
	})
}

func (h *LiveHandler) thread(ctx context.Context, session *auth.Session, questionID string) (*QuestionThread, error) {
	question, err := h.forum.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	answers, err := h.forum.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, err
	}
	votes, err := h.forum.MyVotes(ctx, session, questionID)
	if err != nil {
		return nil, err
	}
	return &QuestionThread{Question: question, Answers: answers, MyVotes: votes}, nil
}

// Notifications streams the caller's notification feed
func (h *LiveHandler) Notifications(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if !session.Authenticated() {
		respondError(c, apperr.Wrap(apperr.ErrPermissionDenied, "You must be logged in to see notifications", nil))
		return
	}

	h.stream(c, live.NotificationsTopic(session.UserID), func(ctx context.Context) (any, error) {
		return h.forum.ListNotifications(ctx, session)
	})
}

// Users streams the user list (admin only)
func (h *LiveHandler) Users(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if err := auth.RequireAdmin(session); err != nil {
		respondError(c, err)
		return
	}

	h.stream(c, live.TopicAdminUsers, func(ctx context.Context) (any, error) {
		return h.forum.ListUsers(ctx, session)
	})
}

// stream relays snapshots until the client goes away
func (h *LiveHandler) stream(c *gin.Context, topic string, fetch live.FetchFunc) {
	log := logger.FromGin(c, h.logger)
	sub := h.hub.Subscribe(c.Request.Context(), topic, fetch)
	defer sub.Cancel()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log.Debug("live stream opened", zap.String("topic", topic))
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				if err := sub.Err(); err != nil {
					c.SSEvent("error", errorEvent(err))
				}
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	log.Debug("live stream closed", zap.String("topic", topic))
}

// errorEvent is the payload of the event that ends a stream
func errorEvent(err error) middleware.ErrorResponse {
	var de *apperr.DomainError
	if errors.As(err, &de) {
		return middleware.ErrorResponse{Error: de.Message, Code: de.Code}
	}
	return middleware.ErrorResponse{Error: "Internal server error"}
}
