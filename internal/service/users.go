package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/logger"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

type UserService struct {
	tx    repository.TxRunner
	users repository.UserStore
	clock clock.Clock
}

func NewUserService(d Deps) *UserService {
	return &UserService{
		tx:    d.Repos.Tx,
		users: d.Repos.Users,
		clock: d.Clock,
	}
}

// Register creates an active account. The first account in an empty store becomes ADMIN.
func (s *UserService) Register(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	ctx, span := tracer().Start(ctx, "user.register")
	var err error
	defer func() { endSpan(span, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	switch {
	case !strings.Contains(email, "@"):
		err = apperrors.Invalid("email %q is not valid", email)
	case passwordHash == "":
		err = apperrors.Invalid("password is required")
	}
	if err != nil {
		return nil, err
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         models.RoleUser,
		IsActive:     true,
		RegisteredAt: s.clock.Now(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return apperrors.Internal("look up user", err)
		}
		if existing != nil {
			return apperrors.ErrEmailTaken
		}

		count, err := s.users.Count(ctx)
		if err != nil {
			return apperrors.Internal("count users", err)
		}
		if count == 0 {
			user.Role = models.RoleAdmin
		}

		if err := s.users.Create(ctx, user); err != nil {
			return apperrors.Internal("create user", err)
		}

		// a concurrent registration may have won the email
		stored, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return apperrors.Internal("look up user", err)
		}
		if stored == nil || stored.ID != user.ID {
			return apperrors.ErrEmailTaken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	logger.WithContext(ctx).Info("User registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ToggleBlock flips the active flag of another user. Admins only.
func (s *UserService) ToggleBlock(ctx context.Context, principal models.Principal, userID uuid.UUID) (*models.User, error) {
	ctx, span := tracer().Start(ctx, "user.toggle_block")
	span.SetAttributes(attribute.String("user.id", userID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	if !principal.IsAdmin() {
		err = apperrors.ErrForbidden
		return nil, err
	}
	if principal.UserID == userID {
		err = apperrors.Invalid("you cannot block yourself")
		return nil, err
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return apperrors.Internal("load user", err)
		}
		if u == nil {
			return apperrors.ErrUserNotFound
		}

		u.IsActive = !u.IsActive
		found, err := s.users.SetActive(ctx, u.ID, u.IsActive)
		if err != nil {
			return apperrors.Internal("update user", err)
		}
		if !found {
			return apperrors.ErrUserNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("User block toggled", "user_id", user.ID, "active", user.IsActive, "by", principal.UserID)
	return user, nil
}

// EnsureAdmin creates an ADMIN account for email unless one already exists.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return false, apperrors.Invalid("admin email and password are required")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, apperrors.Internal("look up admin", err)
	}
	if existing != nil {
		if existing.Role != models.RoleAdmin {
			logger.WithContext(ctx).Warn("Seed admin email belongs to a non-admin account", "email", email)
		}
		return false, nil
	}

	name, _, _ := strings.Cut(email, "@")
	admin := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         models.RoleAdmin,
		IsActive:     true,
		RegisteredAt: s.clock.Now(),
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, apperrors.Internal("create admin", err)
	}
	return true, nil
}
