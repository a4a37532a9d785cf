package live

import "fmt"

// Topics that forum writes publish to
const (
	TopicQuestions  = "questions"
	TopicAdminUsers = "admin/users"
)

// AnswersTopic carries the answers of one question, including vote counters
// and acceptance.
func AnswersTopic(questionID string) string {
	return fmt.Sprintf("questions/%s/answers", questionID)
}

// NotificationsTopic carries one user's notification feed
func NotificationsTopic(userID string) string {
	return fmt.Sprintf("users/%s/notifications", userID)
}
