package service

import (
	"context"
	"errors"
	"strings"

	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// Users is thin account plumbing; the core only needs existence checks, the
// rest exists so the module runs end to end.
type Users struct {
	users  UserRepository
	logger zerolog.Logger
}

func NewUsers(users UserRepository, logger *zerolog.Logger) *Users {
	return &Users{
		users:  users,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// UserPatch carries the mutable user fields; nil means "leave as is".
type UserPatch struct {
	Name  *string
	Email *string
}

func (s *Users) Create(ctx context.Context, user models.User) (*models.User, error) {
	if strings.TrimSpace(user.Email) == "" {
		return nil, validation("Email is required")
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, conflict("Email is already in use")
		}
		return nil, err
	}
	return &user, nil
}

func (s *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("User is not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Users) List(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *Users) Update(ctx context.Context, id int64, patch UserPatch) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		if strings.TrimSpace(*patch.Email) == "" {
			return nil, validation("Email is required")
		}
		user.Email = *patch.Email
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, conflict("Email is already in use")
		}
		return nil, err
	}
	return user, nil
}

func (s *Users) Delete(ctx context.Context, id int64) error {
	err := s.users.DeleteUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound("User is not found")
	}
	return err
}
