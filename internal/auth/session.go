package auth

import (
	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Session identifies who performs an operation. It is passed explicitly to
// every forum and ledger operation.
type Session struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	Anonymous bool   `json:"anonymous"`
	Banned    bool   `json:"banned"`
}

// SessionFor builds the session of a registered user
func SessionFor(u *models.User) *Session {
	return &Session{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Banned: u.IsBanned,
	}
}

// Authenticated reports a signed-in, non-anonymous session
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != "" && !s.Anonymous
}

// DisplayName is the name shown to other users
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == models.RoleAdmin
}

// RequireMember rejects anonymous, missing and banned sessions
func RequireMember(s *Session, action string) error {
	if !s.Authenticated() {
		return apperr.Wrap(apperr.ErrPermissionDenied, "You must be logged in to "+action, nil)
	}
	if s.Banned {
		return apperr.Wrap(apperr.ErrPermissionDenied, "Banned users cannot "+action, nil)
	}
	return nil
}

// RequireAdmin rejects every session without the admin role
func RequireAdmin(s *Session) error {
	if !s.IsAdmin() {
		return apperr.Wrap(apperr.ErrPermissionDenied, "Admin role required", nil)
	}
	return nil
}
