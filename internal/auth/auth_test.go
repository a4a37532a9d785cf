package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
)

func newService(t *testing.T) *Service {
	cfg := config.AuthConfig{
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		AdminEmails: []string{"Boss@Example.com"},
	}
	return NewService(testutil.NewDB(t), NewTokenService(cfg, "stackit-test"), cfg, zap.NewNop())
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService(config.AuthConfig{JWTSecret: "s", TokenTTL: time.Minute}, "iss")

	token, expiresAt, err := tokens.Issue(&Session{UserID: "u1", Name: "ann", Email: "ann@x.io"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ann", claims.Name)
	assert.False(t, claims.Anonymous)
}

func TestTokenService_Rejects(t *testing.T) {
	tokens := NewTokenService(config.AuthConfig{JWTSecret: "s", TokenTTL: time.Minute}, "iss")
	token, _, err := tokens.Issue(&Session{UserID: "u1"})
	require.NoError(t, err)

	other := NewTokenService(config.AuthConfig{JWTSecret: "other", TokenTTL: time.Minute}, "iss")
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	issued, err := svc.Register(ctx, models.RegisterRequest{Email: "Ann@Example.com", Password: "secret1", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", issued.User.Email)
	assert.Equal(t, models.RoleUser, issued.Session.Role)
	assert.NotEmpty(t, issued.Token)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "ann@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	logged, err := svc.Login(ctx, models.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, issued.User.ID, logged.Session.UserID)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestRegister_AdminEmail(t *testing.T) {
	svc := newService(t)

	issued, err := svc.Register(context.Background(), models.RegisterRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, issued.User.Role)
	assert.Equal(t, "boss", issued.User.Name)
	assert.True(t, issued.Session.IsAdmin())
}

func TestEstablish(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	t.Run("no token gives an anonymous session", func(t *testing.T) {
		issued, err := svc.Establish(ctx, "")
		require.NoError(t, err)
		assert.True(t, issued.Session.Anonymous)
		assert.False(t, issued.Session.Authenticated())
		assert.NotEmpty(t, issued.Session.UserID)

		again, err := svc.Resolve(ctx, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, issued.Session.UserID, again.UserID)
		assert.True(t, again.Anonymous)
	})

	t.Run("pre-issued token gives an authenticated session", func(t *testing.T) {
		reg, err := svc.Register(ctx, models.RegisterRequest{Email: "bob@example.com", Password: "secret1"})
		require.NoError(t, err)

		issued, err := svc.Establish(ctx, reg.Token)
		require.NoError(t, err)
		assert.True(t, issued.Session.Authenticated())
		assert.Equal(t, reg.User.ID, issued.Session.UserID)
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		_, err := svc.Establish(ctx, "garbage")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestResolve_RefreshesBan(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(&models.User{}).Where("id = ?", reg.User.ID).Update("is_banned", true).Error)

	session, err := svc.Resolve(ctx, reg.Token)
	require.NoError(t, err)
	assert.True(t, session.Banned)
	assert.ErrorIs(t, RequireMember(session, "vote"), apperr.ErrPermissionDenied)
}

func TestRequireMember(t *testing.T) {
	assert.ErrorIs(t, RequireMember(nil, "vote"), apperr.ErrPermissionDenied)
	assert.ErrorIs(t, RequireMember(&Session{UserID: "x", Anonymous: true}, "vote"), apperr.ErrPermissionDenied)
	assert.NoError(t, RequireMember(&Session{UserID: "x"}, "vote"))

	assert.ErrorIs(t, RequireAdmin(&Session{UserID: "x", Role: models.RoleUser}), apperr.ErrPermissionDenied)
	assert.NoError(t, RequireAdmin(&Session{UserID: "x", Role: models.RoleAdmin}))
}
