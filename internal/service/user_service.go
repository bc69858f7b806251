package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/immxrtalbeast/studyroom/internal/auth"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

type RegisterInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Role  string `json:"role" validate:"omitempty,oneof=student staff"`
}

// UserService maps identity-provider tokens onto local users.
type UserService struct {
	users    repository.UserRepository
	verifier auth.Verifier
	log      *slog.Logger
}

func NewUserService(users repository.UserRepository, verifier auth.Verifier, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		users:    users,
		verifier: verifier,
		log:      log,
	}
}

// Resolve returns the local user behind token. It never creates users.
func (s *UserService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	const op = "service.user.resolve"

	identity, err := s.verify(ctx, op, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByExternalID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotProvisioned
		}
		s.log.Error("failed to load user", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return user, nil
}

// Register creates the local user for token's subject, or returns the
// existing one. The bool reports whether a user was created.
func (s *UserService) Register(ctx context.Context, token string, in RegisterInput) (*domain.User, bool, error) {
	const op = "service.user.register"

	identity, err := s.verify(ctx, op, token)
	if err != nil {
		return nil, false, err
	}
	log := s.log.With(slog.String("op", op), slog.String("subject", identity.Subject))

	existing, err := s.users.GetByExternalID(ctx, identity.Subject)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		log.Error("failed to look up user", sl.Err(err))
		return nil, false, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		in.Name = identity.Name
	}
	if in.Email == "" {
		in.Email = identity.Email
	}
	if err := validateStruct(in); err != nil {
		return nil, false, err
	}

	user := domain.NewUser(identity.Subject, in.Name, in.Email, in.Role)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			// lost a race with a concurrent registration of the same subject
			existing, getErr := s.users.GetByExternalID(ctx, identity.Subject)
			if getErr == nil {
				return existing, false, nil
			}
		}
		log.Error("failed to create user", sl.Err(err))
		return nil, false, err
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, true, nil
}

// UpdateProfile changes the display name and email of an existing user.
func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, in RegisterInput) (*domain.User, error) {
	const op = "service.user.updateProfile"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = user.Role
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = in.Name
	updated.Email = in.Email
	updated.Role = in.Role
	updated.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, &updated); err != nil {
		s.log.Error("failed to update user", slog.String("op", op), sl.Err(err))
		return nil, err
	}
	return &updated, nil
}

func (s *UserService) verify(ctx context.Context, op, token string) (*auth.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrProviderUnavailable) {
			s.log.Warn("token verification unavailable", slog.String("op", op), sl.Err(err))
			return nil, ErrUnavailable
		}
		s.log.Debug("token rejected", slog.String("op", op), sl.Err(err))
		return nil, ErrUnauthenticated
	}
	return identity, nil
}
