// Package notify delivers user notifications. Delivery is best-effort: a
// failure is logged and never fails the operation that caused it.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Publisher announces changes to live queries
type Publisher interface {
	Notify(ctx context.Context, topics ...string)
}

// StoreNotifier writes notifications to the database and refreshes the
// recipient's live feed.
type StoreNotifier struct {
	db     *gorm.DB
	live   Publisher
	logger *zap.Logger
}

func NewStoreNotifier(db *gorm.DB, live Publisher, logger *zap.Logger) *StoreNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreNotifier{db: db, live: live, logger: logger.Named("notify")}
}

func (s *StoreNotifier) Notify(ctx context.Context, n models.Notification) {
	if err := s.Store(ctx, &n); err != nil {
		s.logger.Warn("failed to store notification",
			zap.String("user_id", n.UserID),
			zap.String("link", n.Link),
			zap.Error(err))
	}
}

// Store persists n, filling in id and timestamp when absent
func (s *StoreNotifier) Store(ctx context.Context, n *models.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification has no recipient")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Read = false

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	if s.live != nil {
		s.live.Notify(ctx, live.NotificationsTopic(n.UserID))
	}
	return nil
}

// EventSender publishes notifications to a message queue
type EventSender interface {
	SendNotification(ctx context.Context, n models.Notification) error
}

// QueueNotifier hands notifications to a queue; a consumer stores them
// later through StoreNotifier.Store.
type QueueNotifier struct {
	sender EventSender
	logger *zap.Logger
}

func NewQueueNotifier(sender EventSender, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{sender: sender, logger: logger.Named("notify")}
}

func (q *QueueNotifier) Notify(ctx context.Context, n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := q.sender.SendNotification(ctx, n); err != nil {
		q.logger.Warn("failed to enqueue notification",
			zap.String("user_id", n.UserID),
			zap.Error(err))
	}
}

// QuestionPosted confirms a new question to its author
func QuestionPosted(q *models.Question) models.Notification {
	return models.Notification{
		UserID:  q.UserID,
		Message: fmt.Sprintf("Your question %q has been successfully posted!", q.Title),
		Link:    models.QuestionLink(q.ID),
	}
}

// Answered tells the question author that actor answered
func Answered(actor string, q *models.Question) models.Notification {
	return models.Notification{
		UserID:  q.UserID,
		Message: fmt.Sprintf("%s answered your question %q.", actor, q.Title),
		Link:    models.QuestionLink(q.ID),
	}
}

// Accepted tells the answer author that actor accepted it
func Accepted(actor string, q *models.Question, a *models.Answer) models.Notification {
	return models.Notification{
		UserID:  a.UserID,
		Message: fmt.Sprintf("%s accepted your answer to %q.", actor, q.Title),
		Link:    models.QuestionLink(q.ID),
	}
}
