// Package ledger keeps answer vote counters consistent with vote records and
// toggles accepted answers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/lock"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
)

// errStale means another writer changed the answer between read and write
var errStale = errors.New("answer changed concurrently")

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Notification) {}

type nopPublisher struct{}

func (nopPublisher) Notify(context.Context, ...string) {}

// Ledger executes vote and accept operations
type Ledger struct {
	db         *gorm.DB
	locker     lock.Locker
	notifier   notify.Notifier
	live       notify.Publisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

// Option configures a Ledger
type Option func(*Ledger)

func WithLocker(l lock.Locker) Option {
	return func(lg *Ledger) { lg.locker = l }
}

func WithNotifier(n notify.Notifier) Option {
	return func(lg *Ledger) { lg.notifier = n }
}

func WithPublisher(p notify.Publisher) Option {
	return func(lg *Ledger) { lg.live = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(lg *Ledger) { lg.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) { lg.logger = l.Named("ledger") }
}

func New(db *gorm.DB, cfg config.LedgerConfig, opts ...Option) *Ledger {
	l := &Ledger{
		db:         db,
		locker:     lock.NewKeyedMutex(),
		notifier:   nopNotifier{},
		live:       nopPublisher{},
		logger:     zap.NewNop(),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
	}
	if l.backoff <= 0 {
		l.backoff = 5 * time.Millisecond
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.backoff
	b.MaxInterval = 50 * l.backoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(l.maxRetries)), ctx)
}

// CastVote applies polarity to the session user's vote on an answer and
// returns the voter's resulting polarity with the committed counters. The
// vote record and the counters change together or not at all.
func (l *Ledger) CastVote(ctx context.Context, session *auth.Session, answerID string, polarity models.Polarity) (*models.VoteResult, error) {
	started := time.Now()

	if err := auth.RequireMember(session, "vote"); err != nil {
		l.metrics.ObserveVote(metrics.ResultDenied, started)
		return nil, err
	}
	if polarity != models.PolarityUpvote && polarity != models.PolarityDownvote {
		l.metrics.ObserveVote(metrics.ResultError, started)
		return nil, apperr.Wrap(apperr.ErrInvalidInput, fmt.Sprintf("Unknown vote polarity %q", polarity), nil)
	}

	release, err := l.locker.Acquire(ctx, "answer:"+answerID)
	if err != nil {
		l.metrics.ObserveVote(metrics.ResultTransient, started)
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}
	defer release()

	var (
		result     *models.VoteResult
		questionID string
		attempt    int
	)
	err = backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			l.metrics.VoteRetried()
		}

		res, qid, err := l.castOnce(ctx, session.UserID, answerID, polarity)
		switch {
		case err == nil:
			result, questionID = res, qid
			return nil
		case errors.Is(err, errStale), database.IsConflict(err):
			l.logger.Debug("vote conflict, retrying",
				zap.String("answer_id", answerID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		default:
			return backoff.Permanent(err)
		}
	}, l.newBackOff(ctx))

	if err != nil {
		err = l.classify(err)
		l.metrics.ObserveVote(resultOf(err), started)
		l.logger.Info("vote rejected",
			zap.String("answer_id", answerID),
			zap.String("user_id", session.UserID),
			zap.String("code", apperr.CodeOf(err)),
			zap.Error(err))
		return nil, err
	}

	l.metrics.ObserveVote(metrics.ResultApplied, started)
	l.logger.Debug("vote applied",
		zap.String("answer_id", answerID),
		zap.String("user_id", session.UserID),
		zap.String("polarity", string(result.Polarity)),
		zap.Int("attempts", attempt))

	// committed; a disconnecting client must not stop the fan-out
	l.live.Notify(context.WithoutCancel(ctx), live.AnswersTopic(questionID))
	return result, nil
}

// castOnce is one read-modify-write of a vote record and its answer
func (l *Ledger) castOnce(ctx context.Context, userID, answerID string, requested models.Polarity) (*models.VoteResult, string, error) {
	var (
		result     *models.VoteResult
		questionID string
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.ErrNotFound, "Answer not found", nil)
			}
			return err
		}

		var vote models.Vote
		found := tx.Where("answer_id = ? AND user_id = ?", answerID, userID).Limit(1).Find(&vote)
		if found.Error != nil {
			return found.Error
		}
		current := models.PolarityNone
		if found.RowsAffected > 0 {
			current = vote.Polarity
		}

		next, up, down := Transition(current, requested)

		switch {
		case current == models.PolarityNone:
			if err := tx.Create(&models.Vote{AnswerID: answerID, UserID: userID, Polarity: next}).Error; err != nil {
				return err
			}
		case next == models.PolarityNone:
			res := tx.Delete(&models.Vote{}, vote.ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStale
			}
		default:
			res := tx.Model(&models.Vote{}).Where("id = ? AND polarity = ?", vote.ID, current).Update("polarity", next)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStale
			}
		}

		upvotes, downvotes := answer.Upvotes+up, answer.Downvotes+down
		if upvotes < 0 || downvotes < 0 {
			return fmt.Errorf("answer %s counters would become negative (%d, %d)", answerID, upvotes, downvotes)
		}

		res := tx.Model(&models.Answer{}).
			Where("id = ? AND version = ?", answer.ID, answer.Version).
			Updates(map[string]any{
				"upvotes":   upvotes,
				"downvotes": downvotes,
				"version":   answer.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStale
		}

		questionID = answer.QuestionID
		result = &models.VoteResult{
			AnswerID:  answerID,
			Polarity:  next,
			Upvotes:   upvotes,
			Downvotes: downvotes,
		}
		return nil
	})
	return result, questionID, err
}

// classify maps a failed attempt to the error reported to the caller
func (l *Ledger) classify(err error) error {
	var de *apperr.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, errStale), database.IsConflict(err):
		return apperr.Wrap(apperr.ErrConflict, "", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), database.IsTransient(err):
		return apperr.Wrap(apperr.ErrTransientIO, "", err)
	default:
		l.logger.Error("vote failed", zap.Error(err))
		return apperr.Wrap(apperr.ErrTransientIO, "", err)
	}
}

func resultOf(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeConflict:
		return metrics.ResultConflict
	case apperr.CodeNotFound:
		return metrics.ResultNotFound
	case apperr.CodePermissionDenied:
		return metrics.ResultDenied
	case apperr.CodeTransientIO:
		return metrics.ResultTransient
	default:
		return metrics.ResultError
	}
}
