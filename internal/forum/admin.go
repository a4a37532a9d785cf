package forum

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// ListUsers returns every account, oldest first
func (s *Service) ListUsers(ctx context.Context, session *auth.Session) ([]models.User, error) {
	if err := auth.RequireAdmin(session); err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, storeError(err, "")
	}
	return users, nil
}

// ToggleBan flips the banned flag of a user and returns the updated user
func (s *Service) ToggleBan(ctx context.Context, session *auth.Session, userID string) (*models.User, error) {
	if err := auth.RequireAdmin(session); err != nil {
		return nil, err
	}
	if userID == session.UserID {
		return nil, apperr.Wrap(apperr.ErrInvalidInput, "Admins cannot ban themselves", nil)
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		user.IsBanned = !user.IsBanned
		return tx.Model(&user).Update("is_banned", user.IsBanned).Error
	})
	if err != nil {
		return nil, storeError(err, "User not found")
	}

	s.logger.Info("user ban toggled",
		zap.String("admin_id", session.UserID),
		zap.String("user_id", userID),
		zap.Bool("banned", user.IsBanned))

	s.live.Notify(context.WithoutCancel(ctx), live.TopicAdminUsers)
	return &user, nil
}

// DeleteQuestion removes a question with all of its answers and their votes
func (s *Service) DeleteQuestion(ctx context.Context, session *auth.Session, questionID string) error {
	if err := auth.RequireAdmin(session); err != nil {
		return err
	}

	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row locks make a concurrent vote's version check fail instead of
		// leaving a vote behind for a deleted answer
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})

		var question models.Question
		if err := locked.First(&question, "id = ?", questionID).Error; err != nil {
			return err
		}

		var answers []models.Answer
		if err := locked.Where("question_id = ?", questionID).Find(&answers).Error; err != nil {
			return err
		}
		for _, a := range answers {
			if err := tx.Where("answer_id = ?", a.ID).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Answer{}, "id = ?", a.ID).Error; err != nil {
				return err
			}
		}
		removed = len(answers)

		return tx.Delete(&models.Question{}, "id = ?", questionID).Error
	})
	if err != nil {
		return storeError(err, "Question not found")
	}

	s.logger.Info("question deleted",
		zap.String("admin_id", session.UserID),
		zap.String("question_id", questionID),
		zap.Int("answers", removed))

	s.live.Notify(context.WithoutCancel(ctx), live.TopicQuestions, live.AnswersTopic(questionID))
	return nil
}
