package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const providerEmail = "email"

// Issued is a session together with its signed token
type Issued struct {
	Session   *Session     `json:"session"`
	User      *models.User `json:"user,omitempty"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Service registers users, checks credentials and resolves tokens into
// sessions.
type Service struct {
	db          *gorm.DB
	tokens      *TokenService
	adminEmails map[string]bool
	logger      *zap.Logger
}

func NewService(db *gorm.DB, tokens *TokenService, cfg config.AuthConfig, logger *zap.Logger) *Service {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[normalizeEmail(email)] = true
	}
	return &Service{
		db:          db,
		tokens:      tokens,
		adminEmails: admins,
		logger:      logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an email/password account and signs it in
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*Issued, error) {
	email := normalizeEmail(req.Email)
	if email == "" || len(req.Password) < 6 {
		return nil, apperr.Wrap(apperr.ErrInvalidInput, "Email and a password of at least 6 characters are required", nil)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}
	if count > 0 {
		return nil, apperr.Wrap(apperr.ErrInvalidInput, "Email already registered", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	role := models.RoleUser
	if s.adminEmails[email] {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Password:     string(hashedPassword),
		Role:         role,
		AuthProvider: providerEmail,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.ErrInvalidInput, "Email already registered", err)
		}
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", role))
	return s.issue(user)
}

// Login checks email and password
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*Issued, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND auth_provider = ?", normalizeEmail(req.Email), providerEmail).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.ErrUnauthenticated, "Invalid credentials", nil)
		}
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "Invalid credentials", nil)
	}

	return s.issue(&user)
}

func (s *Service) issue(user *models.User) (*Issued, error) {
	session := SessionFor(user)
	token, expiresAt, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}
	return &Issued{Session: session, User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Establish starts a session at client startup. A pre-issued token yields the
// authenticated session it names; no token yields a fresh anonymous session.
func (s *Service) Establish(ctx context.Context, token string) (*Issued, error) {
	if strings.TrimSpace(token) == "" {
		session := &Session{
			UserID:    uuid.NewString(),
			Name:      "anonymous",
			Role:      models.RoleUser,
			Anonymous: true,
		}
		signed, expiresAt, err := s.tokens.Issue(session)
		if err != nil {
			return nil, err
		}
		return &Issued{Session: session, Token: signed, ExpiresAt: expiresAt}, nil
	}

	session, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	issued := &Issued{Session: session, Token: token}
	if claims, err := s.tokens.Parse(token); err == nil && claims.ExpiresAt != nil {
		issued.ExpiresAt = claims.ExpiresAt.Time
	}
	return issued, nil
}

// Resolve turns a token into a session. Role and ban state are read from the
// users table so moderation takes effect on the next request.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, ErrExpiredToken) {
			msg = "Token has expired"
		}
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, msg, err)
	}

	if claims.Anonymous {
		return &Session{
			UserID:    claims.UserID,
			Name:      claims.Name,
			Role:      models.RoleUser,
			Anonymous: true,
		}, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.ErrUnauthenticated, "User no longer exists", nil)
		}
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}
	return SessionFor(&user), nil
}

// User loads the account behind a session
func (s *Service) User(ctx context.Context, session *Session) (*models.User, error) {
	if !session.Authenticated() {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "", nil)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "User not found", nil)
		}
		return nil, apperr.Wrap(apperr.ErrTransientIO, "", err)
	}
	return &user, nil
}
