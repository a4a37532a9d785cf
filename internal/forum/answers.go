package forum

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
)

// CreateAnswer posts an answer, bumps the question's answer count and tells
// the question author.
func (s *Service) CreateAnswer(ctx context.Context, session *auth.Session, questionID string, req models.CreateAnswerRequest) (*models.Answer, error) {
	if err := auth.RequireMember(session, "post an answer"); err != nil {
		return nil, err
	}
	if IsBlankHTML(req.Content) {
		return nil, apperr.Wrap(apperr.ErrInvalidInput, "Answer cannot be empty.", nil)
	}

	var question models.Question
	answer := &models.Answer{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		Content:    req.Content,
		UserID:     session.UserID,
		UserName:   session.DisplayName(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&question, "id = ?", questionID).Error; err != nil {
			return err
		}
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).
			Where("id = ?", questionID).
			UpdateColumn("answers_count", gorm.Expr("answers_count + ?", 1)).Error
	})
	if err != nil {
		return nil, storeError(err, "Question not found")
	}

	s.logger.Info("answer posted",
		zap.String("question_id", questionID),
		zap.String("answer_id", answer.ID),
		zap.String("user_id", session.UserID))

	ctx = context.WithoutCancel(ctx)
	if question.UserID != session.UserID {
		s.notifier.Notify(ctx, notify.Answered(session.DisplayName(), &question))
	}
	s.live.Notify(ctx, live.AnswersTopic(questionID), live.TopicQuestions)
	return answer, nil
}

// ListAnswers returns the answers of a question: the accepted one first,
// then by upvotes, oldest first among equals.
func (s *Service) ListAnswers(ctx context.Context, questionID string) ([]models.Answer, error) {
	question, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	answers := []models.Answer{}
	err = s.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("upvotes desc").
		Order("created_at asc").
		Find(&answers).Error
	if err != nil {
		return nil, storeError(err, "")
	}

	if accepted := question.AcceptedAnswerID; accepted != nil {
		sort.SliceStable(answers, func(i, j int) bool {
			return answers[i].ID == *accepted && answers[j].ID != *accepted
		})
	}
	return answers, nil
}

// MyVotes maps answer id to the session user's polarity for every answer of
// the question the user voted on.
func (s *Service) MyVotes(ctx context.Context, session *auth.Session, questionID string) (map[string]models.Polarity, error) {
	votes := map[string]models.Polarity{}
	if !session.Authenticated() {
		return votes, nil
	}

	db := s.db.WithContext(ctx)
	answerIDs := db.Model(&models.Answer{}).Select("id").Where("question_id = ?", questionID)

	var records []models.Vote
	if err := db.Where("user_id = ? AND answer_id IN (?)", session.UserID, answerIDs).Find(&records).Error; err != nil {
		return nil, storeError(err, "")
	}

	for _, v := range records {
		votes[v.AnswerID] = v.Polarity
	}
	return votes, nil
}
