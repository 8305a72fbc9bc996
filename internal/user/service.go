package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates an account. name is split into first and last name.
func (s *Service) Register(ctx context.Context, name, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	first, last := splitName(name)
	created, err := s.repo.Create(ctx, User{
		Username:     username,
		PasswordHash: string(hashed),
		FirstName:    first,
		LastName:     last,
		Available:    true,
	})
	if err != nil {
		return User{}, err
	}
	s.log.Debug("user registered", zap.Int("user_id", created.ID), zap.String("username", username))
	return created, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil || !u.Available {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FullName string
	Email    string
	Phone    string
}

func (s *Service) UpdateProfile(ctx context.Context, id int, upd ProfileUpdate) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.FirstName, u.LastName = splitName(upd.FullName)
	u.Email = strings.TrimSpace(upd.Email)
	u.Phone = strings.TrimSpace(upd.Phone)
	return s.repo.Update(ctx, u)
}

// SetAvatar stores the new avatar location and returns the previous src.
func (s *Service) SetAvatar(ctx context.Context, id int, src, alt string) (User, string, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}
	previous := u.AvatarSrc
	u.AvatarSrc, u.AvatarAlt = src, alt
	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return User{}, "", err
	}
	return updated, previous, nil
}

func (s *Service) ChangePassword(ctx context.Context, id int, current, next string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, string(hashed))
}

// Delete deactivates the account; rows are never removed.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Deactivate(ctx, id)
}
