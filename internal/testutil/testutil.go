// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Namespace is the table prefix used by every test database
const Namespace = "test"

// NewDB opens a migrated in-memory sqlite database closed at test cleanup
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	svc, err := database.Open(sqlite.Open(":memory:"), Namespace, nil, "silent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc.GetDB()
}

// CreateUser inserts a user with the given name and role
func CreateUser(t testing.TB, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        name + "@example.com",
		Name:         name,
		Password:     "x",
		Role:         role,
		AuthProvider: "email",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateQuestion inserts a question authored by owner
func CreateQuestion(t testing.TB, db *gorm.DB, owner *models.User, title string, tags ...string) *models.Question {
	t.Helper()
	q := &models.Question{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "<p>" + title + "</p>",
		Tags:        models.Tags(tags),
		UserID:      owner.ID,
		UserName:    owner.Name,
	}
	if q.Tags == nil {
		q.Tags = models.Tags{}
	}
	require.NoError(t, db.Create(q).Error)
	return q
}

// CreateAnswer inserts an answer with zero counters
func CreateAnswer(t testing.TB, db *gorm.DB, q *models.Question, author *models.User, content string) *models.Answer {
	t.Helper()
	a := &models.Answer{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		Content:    content,
		UserID:     author.ID,
		UserName:   author.Name,
	}
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Model(q).UpdateColumn("answers_count", gorm.Expr("answers_count + ?", 1)).Error)
	return a
}

// Recorder is a notifier that keeps every notification it is given
type Recorder struct {
	mu   sync.Mutex
	Sent []models.Notification
}

// Notify implements notify.Notifier
func (r *Recorder) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, n)
}

// For returns the notifications addressed to userID
func (r *Recorder) For(userID string) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.Sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
