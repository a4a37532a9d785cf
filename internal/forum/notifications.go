package forum

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Feed is a user's notifications, newest first
type Feed struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// ListNotifications returns the session user's feed
func (s *Service) ListNotifications(ctx context.Context, session *auth.Session) (*Feed, error) {
	if !session.Authenticated() {
		return nil, apperr.Wrap(apperr.ErrPermissionDenied, "You must be logged in to see notifications", nil)
	}

	feed := &Feed{Notifications: []models.Notification{}}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", session.UserID).
		Order("created_at desc").
		Find(&feed.Notifications).Error
	if err != nil {
		return nil, storeError(err, "")
	}

	for _, n := range feed.Notifications {
		if !n.Read {
			feed.Unread++
		}
	}
	return feed, nil
}

// MarkRead marks one of the session user's notifications read
func (s *Service) MarkRead(ctx context.Context, session *auth.Session, notificationID string) error {
	if !session.Authenticated() {
		return apperr.Wrap(apperr.ErrPermissionDenied, "You must be logged in to update notifications", nil)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, session.UserID).
		Update("read", true)
	if res.Error != nil {
		return storeError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "Notification not found", nil)
	}

	s.live.Notify(context.WithoutCancel(ctx), live.NotificationsTopic(session.UserID))
	return nil
}
