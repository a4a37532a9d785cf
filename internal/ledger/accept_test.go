package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
)

func (f *fixture) accepted(t *testing.T) *string {
	var q models.Question
	require.NoError(t, f.db.First(&q, "id = ?", f.question.ID).Error)
	return q.AcceptedAnswerID
}

func TestAcceptAnswer_Toggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := auth.SessionFor(f.author)

	res, err := f.ledger.AcceptAnswer(ctx, owner, f.question.ID, f.answer.ID)
	require.NoError(t, err)
	require.NotNil(t, res.AcceptedAnswerID)
	assert.Equal(t, f.answer.ID, *res.AcceptedAnswerID)
	assert.Equal(t, f.answer.ID, *f.accepted(t))

	res, err = f.ledger.AcceptAnswer(ctx, owner, f.question.ID, f.answer.ID)
	require.NoError(t, err)
	assert.Nil(t, res.AcceptedAnswerID)
	assert.Nil(t, f.accepted(t))

	// only the accept notified the answer author
	notes := f.notes.For(f.answer.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, `asker accepted your answer to "How do I vote?".`, notes[0].Message)
	assert.Equal(t, models.QuestionLink(f.question.ID), notes[0].Link)
	assert.Contains(t, f.topics.topics, live.AnswersTopic(f.question.ID))
}

func TestAcceptAnswer_SwitchesToAnotherAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := auth.SessionFor(f.author)
	other := testutil.CreateAnswer(t, f.db, f.question, testutil.CreateUser(t, f.db, "third", models.RoleUser), "<p>Or this</p>")

	_, err := f.ledger.AcceptAnswer(ctx, owner, f.question.ID, f.answer.ID)
	require.NoError(t, err)
	res, err := f.ledger.AcceptAnswer(ctx, owner, f.question.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, *res.AcceptedAnswerID)
	assert.Equal(t, other.ID, *f.accepted(t))
}

func TestAcceptAnswer_NonAuthorDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := auth.SessionFor(f.author)

	_, err := f.ledger.AcceptAnswer(ctx, owner, f.question.ID, f.answer.ID)
	require.NoError(t, err)

	stranger := f.voter(t, "stranger")
	_, err = f.ledger.AcceptAnswer(ctx, stranger, f.question.ID, f.answer.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	assert.Equal(t, f.answer.ID, *f.accepted(t), "acceptance unchanged")

	_, err = f.ledger.AcceptAnswer(ctx, &auth.Session{UserID: f.author.ID, Anonymous: true}, f.question.ID, f.answer.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestAcceptAnswer_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := auth.SessionFor(f.author)

	_, err := f.ledger.AcceptAnswer(ctx, owner, "missing", f.answer.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.ledger.AcceptAnswer(ctx, owner, f.question.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	elsewhere := testutil.CreateQuestion(t, f.db, f.author, "Another one")
	foreign := testutil.CreateAnswer(t, f.db, elsewhere, f.author, "<p>x</p>")
	_, err = f.ledger.AcceptAnswer(ctx, owner, f.question.ID, foreign.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, f.accepted(t))
}

func TestAcceptAnswer_OwnAnswerDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := testutil.CreateAnswer(t, f.db, f.question, f.author, "<p>answering myself</p>")

	_, err := f.ledger.AcceptAnswer(ctx, auth.SessionFor(f.author), f.question.ID, own.ID)
	require.NoError(t, err)
	assert.Empty(t, f.notes.Sent)
}
