package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/security"
)

// UserService covers administrative user management. Mutations on other
// users carry the same priority guard as role mutations: a caller may not
// act on a user whose role outranks their own.
type UserService struct {
	users UserStore
	log   zerolog.Logger
}

func NewUserService(users UserStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	RoleID    *string
	IsActive  *bool
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
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

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		RoleID:       input.RoleID,
		IsActive:     isActive,
	}
	return s.users.Create(ctx, user)
}

func (s *UserService) FindAll(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) FindOne(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByIDWithRole(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, err
	}
	return user, nil
}

type UpdateUserInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	RoleID    *string
	IsActive  *bool
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput, currentUserID *string) (models.User, error) {
	target, err := s.FindOne(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if currentUserID != nil {
		if err := s.checkRolePriority(ctx, *currentUserID, target); err != nil {
			return models.User{}, err
		}
	}

	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email != target.Email {
			if _, err := s.users.FindByEmail(ctx, email); err == nil {
				return models.User{}, apperr.Conflict("this email is already in use")
			} else if !errors.Is(err, repository.ErrUserNotFound) {
				return models.User{}, err
			}
			target.Email = email
		}
	}
	if input.Password != nil {
		passwordHash, err := security.HashPassword(*input.Password)
		if err != nil {
			return models.User{}, err
		}
		target.PasswordHash = passwordHash
	}
	if input.FirstName != nil {
		target.FirstName = input.FirstName
	}
	if input.LastName != nil {
		target.LastName = input.LastName
	}
	if input.RoleID != nil {
		target.RoleID = input.RoleID
	}
	if input.IsActive != nil {
		target.IsActive = *input.IsActive
	}

	return s.users.Update(ctx, target)
}

func (s *UserService) Remove(ctx context.Context, id string, currentUserID *string) error {
	target, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}

	if currentUserID != nil {
		if err := s.checkRolePriority(ctx, *currentUserID, target); err != nil {
			return err
		}
	}

	return s.users.Delete(ctx, target.ID)
}

func (s *UserService) checkRolePriority(ctx context.Context, currentUserID string, target models.User) error {
	current, err := s.users.GetByIDWithRole(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Forbidden("you do not have permission to perform this action")
		}
		return err
	}
	if current.Role == nil {
		return apperr.Forbidden("you do not have permission to perform this action")
	}
	if target.Role == nil {
		return nil
	}
	if target.Role.Priority > current.Role.Priority {
		return apperr.Forbidden("cannot act on users with higher role priority")
	}
	return nil
}
