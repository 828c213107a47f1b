package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/security"
)

type authFixture struct {
	auth     *AuthService
	users    *fakeUserStore
	sessions *fakeSessionStore
	rbac     *RBACService
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	cfg := config.SecurityConfig{
		JWTSecret:         "test-secret",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   time.Hour,
		MaxSessions:       5,
		SessionTTL:        time.Hour,
		InactiveRetention: 24 * time.Hour,
	}

	permissions := newFakePermissionStore()
	roles := newFakeRoleStore(permissions)
	users := newFakeUserStore()
	sessionStore := newFakeSessionStore()

	rbac := NewRBACService(roles, permissions, nil, zerolog.Nop())
	sessions := NewSessionService(sessionStore, cfg, zerolog.Nop())
	auth := NewAuthService(users, sessions, rbac, cfg, zerolog.Nop())

	return authFixture{auth: auth, users: users, sessions: sessionStore, rbac: rbac}
}

func (f authFixture) register(t *testing.T, email string, password string) models.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "Alice@Example.COM", "secret-password")
	require.Equal(t, "alice@example.com", user.Email, "email stored lowercased")
	require.True(t, user.IsActive)
	require.Nil(t, user.RoleID, "no default role seeded, user starts role-less")

	_, err := f.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "other"})
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	role, err := f.rbac.CreateRole(ctx, CreateRoleInput{Name: "User", Slug: "user", Priority: 1})
	require.NoError(t, err)

	user := f.register(t, "bob@example.com", "secret-password")
	require.NotNil(t, user.RoleID)
	require.Equal(t, role.ID, *user.RoleID)
}

func TestValidateUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")

	user, err := f.auth.ValidateUser(ctx, "alice@example.com", "secret-password")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, registered.ID, user.ID)

	user, err = f.auth.ValidateUser(ctx, "alice@example.com", "wrong-password")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = f.auth.ValidateUser(ctx, "ghost@example.com", "secret-password")
	require.NoError(t, err)
	require.Nil(t, user)

	stored := f.users.users[registered.ID]
	stored.IsActive = false
	f.users.users[registered.ID] = stored

	user, err = f.auth.ValidateUser(ctx, "alice@example.com", "secret-password")
	require.NoError(t, err)
	require.Nil(t, user, "inactive users fail the credential check")
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")

	tokens, err := f.auth.Login(ctx, registered, "10.0.0.1", "agent-a")
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

	stored := f.users.users[registered.ID]
	require.True(t, security.VerifyRefreshTokenHash(tokens.RefreshToken, stored.RefreshTokenHash))

	require.Len(t, f.sessions.sessions, 1, "device login opens a session")
	for _, session := range f.sessions.sessions {
		require.Equal(t, registered.ID, session.UserID)
		require.Equal(t, security.HashRefreshToken(tokens.RefreshToken), session.RefreshTokenHash)
	}
}

func TestLoginWithoutDeviceSkipsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")

	_, err := f.auth.Login(ctx, registered, "", "agent-a")
	require.NoError(t, err)
	require.Empty(t, f.sessions.sessions, "session needs both ip and user agent")
}

func TestRefreshTokensRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")
	tokens, err := f.auth.Login(ctx, registered, "10.0.0.1", "agent-a")
	require.NoError(t, err)

	rotated, err := f.auth.RefreshTokens(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	stored := f.users.users[registered.ID]
	require.True(t, security.VerifyRefreshTokenHash(rotated.RefreshToken, stored.RefreshTokenHash))

	for _, session := range f.sessions.sessions {
		require.Equal(t, security.HashRefreshToken(rotated.RefreshToken), session.RefreshTokenHash,
			"session digest rotated in lockstep")
	}

	// The superseded token loses.
	_, err = f.auth.RefreshTokens(ctx, tokens.RefreshToken)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestRefreshTokensUniformRejection(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")
	tokens, err := f.auth.Login(ctx, registered, "10.0.0.1", "agent-a")
	require.NoError(t, err)

	_, garbageErr := f.auth.RefreshTokens(ctx, "not-a-token")
	require.True(t, apperr.IsKind(garbageErr, apperr.KindUnauthorized))

	require.NoError(t, f.auth.Logout(ctx, registered.ID))
	_, clearedErr := f.auth.RefreshTokens(ctx, tokens.RefreshToken)
	require.True(t, apperr.IsKind(clearedErr, apperr.KindUnauthorized))

	require.Equal(t, apperr.MessageOf(garbageErr), apperr.MessageOf(clearedErr),
		"rejections must not reveal which check failed")
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered := f.register(t, "alice@example.com", "secret-password")
	_, err := f.auth.Login(ctx, registered, "10.0.0.1", "agent-a")
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, registered, "10.0.0.2", "agent-b")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, registered.ID))

	require.Empty(t, f.users.users[registered.ID].RefreshTokenHash)
	for _, session := range f.sessions.sessions {
		require.False(t, session.IsActive, "logout revokes every session")
	}
}
