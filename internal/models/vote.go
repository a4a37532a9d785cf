package models

import (
	"fmt"
	"time"
)

// Polarity is the direction of a vote. PolarityNone is never stored; it is
// what a voter holds after retracting.
type Polarity string

const (
	PolarityNone     Polarity = "none"
	PolarityUpvote   Polarity = "upvote"
	PolarityDownvote Polarity = "downvote"
)

// ParsePolarity accepts only the two storable polarities
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(s); p {
	case PolarityUpvote, PolarityDownvote:
		return p, nil
	default:
		return "", fmt.Errorf("polarity must be %q or %q, got %q", PolarityUpvote, PolarityDownvote, s)
	}
}

// Vote tracks one user's vote on one answer
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	AnswerID  string    `gorm:"size:36;not null;uniqueIndex:,composite:answer_user" json:"answer_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:,composite:answer_user" json:"user_id"`
	Polarity  Polarity  `gorm:"size:16;not null" json:"polarity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VoteRequest struct {
	Polarity string `json:"polarity" binding:"required"`
}

// VoteResult is what the voter gets back after a committed vote
type VoteResult struct {
	AnswerID  string   `json:"answer_id"`
	Polarity  Polarity `json:"polarity"`
	Upvotes   int      `json:"upvotes"`
	Downvotes int      `json:"downvotes"`
}
