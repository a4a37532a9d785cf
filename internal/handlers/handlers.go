package handlers

import (
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/live"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	Notification *NotificationHandler
	Admin        *AdminHandler
	Live         *LiveHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(authSvc *auth.Service, forumSvc *forum.Service, votes *ledger.Ledger, hub *live.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Auth:         NewAuthHandler(authSvc),
		Question:     NewQuestionHandler(forumSvc, votes),
		Answer:       NewAnswerHandler(forumSvc, votes),
		Notification: NewNotificationHandler(forumSvc),
		Admin:        NewAdminHandler(forumSvc),
		Live:         NewLiveHandler(hub, forumSvc, logger),
	}
}
