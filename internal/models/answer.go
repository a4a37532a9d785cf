package models

import "time"

type Answer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	QuestionID string    `gorm:"index;size:36;not null" json:"question_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	UserID     string    `gorm:"size:36" json:"user_id"`
	UserName   string    `json:"user_name"`
	Upvotes    int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes  int       `gorm:"not null;default:0" json:"downvotes"`
	Version    int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateAnswerRequest struct {
	Content string `json:"content" binding:"required"`
}

type AcceptAnswerRequest struct {
	AnswerID string `json:"answer_id" binding:"required"`
}

// AcceptResult is the acceptance state of a question after a toggle.
// AcceptedAnswerID is nil when acceptance was cleared.
type AcceptResult struct {
	QuestionID       string  `json:"question_id"`
	AcceptedAnswerID *string `json:"accepted_answer_id"`
}
