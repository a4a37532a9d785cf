package models

import (
	"fmt"
	"time"
)

type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Message   string    `gorm:"not null" json:"message"`
	Link      string    `json:"link"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionLink is the client route of a question
func QuestionLink(questionID string) string {
	return fmt.Sprintf("/question/%s", questionID)
}
