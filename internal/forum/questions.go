package forum

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
)

const defaultPageSize = 50

// QuestionFilter narrows ListQuestions
type QuestionFilter struct {
	Tag    string `form:"tag"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// CreateQuestion posts a question and confirms it to its author
func (s *Service) CreateQuestion(ctx context.Context, session *auth.Session, req models.CreateQuestionRequest) (*models.Question, error) {
	if err := auth.RequireMember(session, "ask a question"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || IsBlankHTML(req.Description) {
		return nil, apperr.Wrap(apperr.ErrInvalidInput, "Title and Description cannot be empty.", nil)
	}

	q := &models.Question{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Tags:        models.ParseTags(req.Tags),
		UserID:      session.UserID,
		UserName:    session.DisplayName(),
	}
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, storeError(err, "")
	}

	s.logger.Info("question posted", zap.String("question_id", q.ID), zap.String("user_id", q.UserID))

	ctx = context.WithoutCancel(ctx)
	s.notifier.Notify(ctx, notify.QuestionPosted(q))
	s.live.Notify(ctx, live.TopicQuestions)
	return q, nil
}

// likeEscaper makes a tag match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListQuestions returns questions newest first
func (s *Service) ListQuestions(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	limit := filter.Limit
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Question{})
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where(`',' || LOWER(tags) || ',' LIKE ? ESCAPE '\'`, "%,"+likeEscaper.Replace(tag)+",%")
	}

	questions := []models.Question{}
	err := query.Order("created_at desc").Limit(limit).Offset(max(filter.Offset, 0)).Find(&questions).Error
	if err != nil {
		return nil, storeError(err, "")
	}
	return questions, nil
}

// GetQuestion returns one question
func (s *Service) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "Question not found")
	}
	return &q, nil
}
