package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/security"
)

func newSessionFixture(maxSessions int) (*SessionService, *fakeSessionStore) {
	store := newFakeSessionStore()
	cfg := config.SecurityConfig{
		MaxSessions:       maxSessions,
		SessionTTL:        time.Hour,
		InactiveRetention: 24 * time.Hour,
	}
	return NewSessionService(store, cfg, zerolog.Nop()), store
}

func TestCreateSessionEvictsOldest(t *testing.T) {
	svc, _ := newSessionFixture(2)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-1", "10.0.0.2", "agent-b", []byte("h2"))
	require.NoError(t, err)
	third, err := svc.CreateSession(ctx, "user-1", "10.0.0.3", "agent-c", []byte("h3"))
	require.NoError(t, err)

	active, err := svc.FindUserSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, active, 2)

	ids := []string{active[0].ID, active[1].ID}
	require.NotContains(t, ids, first.ID, "oldest session evicted at the cap")
	require.Contains(t, ids, third.ID)
}

func TestCreateSessionCapIsPerUser(t *testing.T) {
	svc, _ := newSessionFixture(2)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-1", "10.0.0.2", "agent-b", []byte("h2"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-2", "10.0.0.3", "agent-c", []byte("h3"))
	require.NoError(t, err)

	one, err := svc.FindUserSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, one, 2)

	two, err := svc.FindUserSessions(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, two, 1)
}

func TestValidateSession(t *testing.T) {
	svc, _ := newSessionFixture(5)
	ctx := context.Background()

	token := "refresh-token"
	hash := security.HashRefreshToken(token)
	session, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", hash)
	require.NoError(t, err)

	validated, err := svc.ValidateSession(ctx, session.ID, token)
	require.NoError(t, err)
	require.NotNil(t, validated.LastActivity, "validation touches activity")

	_, err = svc.ValidateSession(ctx, session.ID, "wrong-token")
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	_, err = svc.ValidateSession(ctx, "missing", token)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestValidateSessionExpiryFlipsInactive(t *testing.T) {
	svc, store := newSessionFixture(5)
	ctx := context.Background()

	token := "refresh-token"
	session, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", security.HashRefreshToken(token))
	require.NoError(t, err)

	stored := store.sessions[session.ID]
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	store.sessions[session.ID] = stored

	_, err = svc.ValidateSession(ctx, session.ID, token)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	require.False(t, store.sessions[session.ID].IsActive, "expired session flipped inactive on detection")
}

func TestRevokeSession(t *testing.T) {
	svc, store := newSessionFixture(5)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(ctx, session.ID, "user-1"))
	require.False(t, store.sessions[session.ID].IsActive)

	require.NoError(t, svc.RevokeSession(ctx, session.ID, "user-1"), "revocation is idempotent")
	require.NoError(t, svc.RevokeSession(ctx, "missing", "user-1"), "unknown sessions are ignored")
}

func TestRevokeSessionScopedToOwner(t *testing.T) {
	svc, store := newSessionFixture(5)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(ctx, session.ID, "user-2"))
	require.True(t, store.sessions[session.ID].IsActive, "another user's revoke must not touch the session")
}

func TestRevokeAllUserSessions(t *testing.T) {
	svc, _ := newSessionFixture(5)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-1", "10.0.0.2", "agent-b", []byte("h2"))
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllUserSessions(ctx, "user-1"))

	active, err := svc.FindUserSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestCleanupExpiredSessions(t *testing.T) {
	svc, store := newSessionFixture(5)
	ctx := context.Background()

	fresh, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	stale, err := svc.CreateSession(ctx, "user-1", "10.0.0.2", "agent-b", []byte("h2"))
	require.NoError(t, err)

	stored := store.sessions[stale.ID]
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	stored.IsActive = false
	store.sessions[stale.ID] = stored

	removed, err := svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, ok := store.sessions[fresh.ID]
	require.True(t, ok)
	_, ok = store.sessions[stale.ID]
	require.False(t, ok)
}

func TestCleanupInactiveSessions(t *testing.T) {
	svc, store := newSessionFixture(5)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	require.NoError(t, svc.RevokeSession(ctx, session.ID, "user-1"))

	stored := store.sessions[session.ID]
	stored.UpdatedAt = time.Now().Add(-48 * time.Hour)
	store.sessions[session.ID] = stored

	removed, err := svc.CleanupInactiveSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestGetSessionStats(t *testing.T) {
	svc, _ := newSessionFixture(5)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "user-1", "10.0.0.1", "agent-a", []byte("h1"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-1", "10.0.0.2", "agent-a", []byte("h2"))
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "user-1", "10.0.0.3", "agent-b", []byte("h3"))
	require.NoError(t, err)

	stats, err := svc.GetSessionStats(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalSessions)
	require.Equal(t, 3, stats.ActiveSessions)
	require.ElementsMatch(t, []string{"agent-a", "agent-b"}, stats.Devices)
}
