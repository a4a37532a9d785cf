package ledger

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
)

// AcceptAnswer toggles answerID as the accepted answer of a question. Only
// the question author may do this. Accepting someone else's answer notifies
// its author; clearing does not.
func (l *Ledger) AcceptAnswer(ctx context.Context, session *auth.Session, questionID, answerID string) (*models.AcceptResult, error) {
	if err := auth.RequireMember(session, "accept answers"); err != nil {
		l.metrics.ObserveAccept(metrics.ResultDenied)
		return nil, err
	}

	var (
		question models.Question
		answer   models.Answer
		accepted *string
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&question, "id = ?", questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.ErrNotFound, "Question not found", nil)
			}
			return err
		}

		if question.UserID != session.UserID {
			return apperr.Wrap(apperr.ErrPermissionDenied, "Only the question owner can accept an answer", nil)
		}

		if err := tx.First(&answer, "id = ? AND question_id = ?", answerID, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.ErrNotFound, "Answer not found for this question", nil)
			}
			return err
		}

		if question.AcceptedAnswerID == nil || *question.AcceptedAnswerID != answerID {
			accepted = &answer.ID
		}
		return tx.Model(&models.Question{}).Where("id = ?", questionID).Update("accepted_answer_id", accepted).Error
	})
	if err != nil {
		err = l.classify(err)
		l.metrics.ObserveAccept(resultOf(err))
		return nil, err
	}
	l.metrics.ObserveAccept(metrics.ResultApplied)

	l.logger.Debug("accepted answer toggled",
		zap.String("question_id", questionID),
		zap.String("answer_id", answerID),
		zap.Bool("accepted", accepted != nil))

	ctx = context.WithoutCancel(ctx)
	if accepted != nil && answer.UserID != session.UserID {
		l.notifier.Notify(ctx, notify.Accepted(session.DisplayName(), &question, &answer))
	}
	l.live.Notify(ctx, live.AnswersTopic(questionID), live.TopicQuestions)

	return &models.AcceptResult{QuestionID: questionID, AcceptedAnswerID: accepted}, nil
}
