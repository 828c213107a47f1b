package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/security"
)

// DefaultRoleSlug is assigned to self-registered users when present.
const DefaultRoleSlug = "user"

// invalidRefreshMsg is deliberately uniform: no verification failure on the
// refresh path may reveal which check rejected the token.
const invalidRefreshMsg = "invalid or expired refresh token"

// AuthService owns the credential lifecycle: registration, password checks,
// token issuance, refresh rotation and logout. The digest stored on the User
// record is the source of truth for refresh verification; the bound session's
// digest is rotated in lockstep so both always match.
type AuthService struct {
	users    UserStore
	sessions *SessionService
	rbac     *RBACService
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions *SessionService, rbac *RBACService, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		rbac:     rbac,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Register creates a user with the default role when one is seeded. A
// missing default role is not an error; the user simply starts role-less.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return models.User{}, apperr.BadRequest("email and password are required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, apperr.Conflict("this email is already in use")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	var roleID *string
	if role, err := s.rbac.FindRoleBySlug(ctx, DefaultRoleSlug); err == nil {
		roleID = &role.ID
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		RoleID:       roleID,
		IsActive:     true,
	}
	return s.users.Create(ctx, user)
}

// ValidateUser is the credential check used before Login. It returns nil
// (not an error) for unknown, inactive or wrong-password users so callers
// cannot distinguish the cases.
func (s *AuthService) ValidateUser(ctx context.Context, email string, password string) (*models.User, error) {
	user, err := s.users.FindByEmailWithRole(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, nil
	}
	return &user, nil
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	User         models.User
}

// Login issues an access/refresh pair, stores the refresh digest on the user
// record and, when the caller's device is identifiable, opens a session
// carrying the same digest.
func (s *AuthService) Login(ctx context.Context, user models.User, ipAddress string, userAgent string) (AuthTokens, error) {
	accessToken, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, user.Email, user.RoleID, s.cfg.AccessTokenTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, user.Email, user.RoleID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshHash := security.HashRefreshToken(refreshToken)
	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, refreshHash); err != nil {
		return AuthTokens{}, err
	}

	if ipAddress != "" && userAgent != "" {
		if _, err := s.sessions.CreateSession(ctx, user.ID, ipAddress, userAgent, refreshHash); err != nil {
			return AuthTokens{}, err
		}
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// RefreshTokens verifies a presented refresh token and rotates it. The old
// digest is replaced on both the user record and the session that still
// holds it; a concurrent rotation with the same stale token loses because
// the stored digest no longer matches.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := security.ParseToken(refreshToken, s.cfg.JWTSecret)
	if err != nil {
		return AuthTokens{}, apperr.Unauthorized(invalidRefreshMsg)
	}

	user, err := s.users.FindByEmailWithRole(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthTokens{}, apperr.Unauthorized(invalidRefreshMsg)
		}
		return AuthTokens{}, err
	}
	if !user.IsActive || len(user.RefreshTokenHash) == 0 {
		return AuthTokens{}, apperr.Unauthorized(invalidRefreshMsg)
	}
	if !security.VerifyRefreshTokenHash(refreshToken, user.RefreshTokenHash) {
		return AuthTokens{}, apperr.Unauthorized(invalidRefreshMsg)
	}

	accessToken, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, user.Email, user.RoleID, s.cfg.AccessTokenTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	newRefreshToken, err := security.GenerateToken(s.cfg.JWTSecret, user.ID, user.Email, user.RoleID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	oldHash := user.RefreshTokenHash
	newHash := security.HashRefreshToken(newRefreshToken)

	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, newHash); err != nil {
		return AuthTokens{}, err
	}
	if err := s.sessions.UpdateSessionRefreshToken(ctx, user.ID, oldHash, newHash); err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         user,
	}, nil
}

// Logout clears the refresh slot and revokes every session. The user-level
// slot is shared across devices, so logout is always a full logout.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		return err
	}
	return s.sessions.RevokeAllUserSessions(ctx, userID)
}
