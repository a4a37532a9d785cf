package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type Question struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Tags             Tags      `gorm:"type:text" json:"tags"`
	UserID           string    `gorm:"index;size:36" json:"user_id"`
	UserName         string    `json:"user_name"`
	AnswersCount     int       `gorm:"not null;default:0" json:"answers_count"`
	AcceptedAnswerID *string   `gorm:"size:36" json:"accepted_answer_id"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateQuestionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Tags        string `json:"tags"` // comma-separated
}

// Tags is a list of tags persisted as a comma-joined string
type Tags []string

// Value implements driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

// Scan implements sql.Scanner
func (t *Tags) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Tags", src)
	}
	*t = ParseTags(raw)
	return nil
}

// Has reports whether tag is present, ignoring case
func (t Tags) Has(tag string) bool {
	for _, existing := range t {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// ParseTags splits comma-separated input, trims every tag and drops empty and
// repeated ones.
func ParseTags(input string) Tags {
	tags := Tags{}
	for _, part := range strings.Split(input, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || tags.Has(tag) {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
