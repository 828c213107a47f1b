package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/models"
)

func seedUserWithRole(t *testing.T, users *fakeUserStore, id string, email string, priority int) models.User {
	t.Helper()
	user := models.User{
		ID:       id,
		Email:    email,
		IsActive: true,
		Role: &models.Role{
			ID:       "role-" + id,
			Slug:     "role-" + id,
			IsActive: true,
			Priority: priority,
		},
	}
	created, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	svc := NewUserService(users, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "alice@example.com", Password: "secret-password"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "ALICE@example.com", Password: "other"})
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestUserUpdatePriorityGuard(t *testing.T) {
	users := newFakeUserStore()
	svc := NewUserService(users, zerolog.Nop())
	ctx := context.Background()

	admin := seedUserWithRole(t, users, "admin", "admin@example.com", 50)
	boss := seedUserWithRole(t, users, "boss", "boss@example.com", 100)
	peer := seedUserWithRole(t, users, "peer", "peer@example.com", 50)

	active := false
	_, err := svc.Update(ctx, boss.ID, UpdateUserInput{IsActive: &active}, &admin.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden), "cannot act on a higher-priority user")

	updated, err := svc.Update(ctx, peer.ID, UpdateUserInput{IsActive: &active}, &admin.ID)
	require.NoError(t, err, "equal priority is allowed")
	require.False(t, updated.IsActive)
}

func TestUserRemovePriorityGuard(t *testing.T) {
	users := newFakeUserStore()
	svc := NewUserService(users, zerolog.Nop())
	ctx := context.Background()

	admin := seedUserWithRole(t, users, "admin", "admin@example.com", 50)
	boss := seedUserWithRole(t, users, "boss", "boss@example.com", 100)
	junior := seedUserWithRole(t, users, "junior", "junior@example.com", 1)

	err := svc.Remove(ctx, boss.ID, &admin.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	require.NoError(t, svc.Remove(ctx, junior.ID, &admin.ID))
	_, err = svc.FindOne(ctx, junior.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUserUpdateRolelessCallerIsForbidden(t *testing.T) {
	users := newFakeUserStore()
	svc := NewUserService(users, zerolog.Nop())
	ctx := context.Background()

	caller, err := users.Create(ctx, models.User{ID: "caller", Email: "caller@example.com", IsActive: true})
	require.NoError(t, err)
	target := seedUserWithRole(t, users, "target", "target@example.com", 1)

	active := false
	_, err = svc.Update(ctx, target.ID, UpdateUserInput{IsActive: &active}, &caller.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
