package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/security"
)

// SessionService tracks one session per device login. Sessions move from
// active to inactive exactly once (revocation or detected expiry) and are
// physically removed by the scheduled sweeps.
type SessionService struct {
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewSessionService(sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

// CreateSession registers a new device login. When the user already holds the
// maximum number of active sessions, the oldest one is evicted to make room.
func (s *SessionService) CreateSession(ctx context.Context, userID string, ipAddress string, userAgent string, refreshTokenHash []byte) (models.Session, error) {
	session := models.Session{
		ID:               ids.New(),
		UserID:           userID,
		RefreshTokenHash: refreshTokenHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		IsActive:         true,
		ExpiresAt:        time.Now().Add(s.cfg.SessionTTL),
	}
	return s.sessions.Create(ctx, session, s.cfg.MaxSessions)
}

// ValidateSession matches a session by id and refresh token. Expiry is
// checked at point of use: an expired session is flipped inactive before the
// caller is rejected, so the sweep only has to delete it later.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string, refreshToken string) (models.Session, error) {
	hash := security.HashRefreshToken(refreshToken)
	session, err := s.sessions.GetActiveByIDAndHash(ctx, sessionID, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Session{}, apperr.Unauthorized("invalid session")
		}
		return models.Session{}, err
	}

	now := time.Now()
	if session.Expired(now) {
		session.IsActive = false
		if err := s.sessions.Update(ctx, session); err != nil {
			return models.Session{}, err
		}
		return models.Session{}, apperr.Unauthorized("session expired")
	}

	session.LastActivity = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *SessionService) FindUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// RevokeSession deactivates one session scoped to its owner. Unknown ids are
// ignored so repeated revocation is safe.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string, userID string) error {
	return s.sessions.MarkInactive(ctx, sessionID, userID)
}

func (s *SessionService) RevokeAllUserSessions(ctx context.Context, userID string) error {
	return s.sessions.MarkAllInactive(ctx, userID)
}

// UpdateSessionRefreshToken rotates the stored digest on the session that
// still holds the old one, keeping rotation bound to the same session record
// instead of minting a new row per refresh.
func (s *SessionService) UpdateSessionRefreshToken(ctx context.Context, userID string, oldHash []byte, newHash []byte) error {
	return s.sessions.RotateRefreshToken(ctx, userID, oldHash, newHash)
}

// UpdateUserSessionActivity is the best-effort per-request activity touch.
// It never fails the caller: all errors are logged and swallowed.
func (s *SessionService) UpdateUserSessionActivity(ctx context.Context, userID string, ipAddress string, userAgent string) {
	if err := s.sessions.TouchActivity(ctx, userID, ipAddress, userAgent); err != nil {
		s.log.Debug().Err(err).Str("user_id", userID).Msg("session activity touch failed")
	}
}

// CleanupExpiredSessions hard-deletes every session past its expiry,
// regardless of the is_active flag.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}

// CleanupInactiveSessions hard-deletes revoked sessions that stayed inactive
// past the retention window.
func (s *SessionService) CleanupInactiveSessions(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.InactiveRetention)
	return s.sessions.DeleteInactiveBefore(ctx, cutoff)
}

func (s *SessionService) GetSessionStats(ctx context.Context, userID string) (models.SessionStats, error) {
	sessions, err := s.FindUserSessions(ctx, userID)
	if err != nil {
		return models.SessionStats{}, err
	}

	stats := models.SessionStats{TotalSessions: len(sessions)}
	seen := make(map[string]struct{})
	for _, session := range sessions {
		if session.IsActive {
			stats.ActiveSessions++
		}
		if _, ok := seen[session.UserAgent]; !ok {
			seen[session.UserAgent] = struct{}{}
			stats.Devices = append(stats.Devices, session.UserAgent)
		}
	}
	return stats, nil
}
