package service

import (
	"context"
	"errors"

	"sand/api/internal/apperr"
	"sand/api/internal/config"
	"sand/api/internal/models"
	"sand/api/internal/repository"
)

const defaultSuperAdminUsername = "SuperAdmin"

type ChangePasswordInput struct {
	UserID      int64
	OldPassword string
	NewPassword string
	// Actor is the caller. AdminReset requires a superadmin actor and skips
	// the old password check.
	Actor      models.PublicUser
	AdminReset bool
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		out = append(out, user.Public())
	}
	return out, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, userLookupErr(err)
	}
	return user.Public(), nil
}

func (s *AuthService) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (models.PublicUser, error) {
	if update.Empty() {
		return models.PublicUser{}, apperr.BadRequest("no fields to update")
	}
	if update.Username != nil {
		if err := validateUsername(*update.Username); err != nil {
			return models.PublicUser{}, err
		}
	}
	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return models.PublicUser{}, err
		}
	}
	if update.Role != nil && !update.Role.Valid() {
		return models.PublicUser{}, apperr.BadRequest("invalid role %q", *update.Role)
	}

	user, err := s.users.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.PublicUser{}, apperr.Conflict("email already registered")
		}
		return models.PublicUser{}, userLookupErr(err)
	}

	s.log.Info().Int64("user_id", id).Msg("user updated")
	return user.Public(), nil
}

// DeleteUser removes the user; their sessions go with them.
func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return userLookupErr(err)
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// ChangePassword replaces the stored hash. Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if input.AdminReset && input.Actor.Role != models.UserRoleSuperAdmin {
		return apperr.Forbidden("only a superadmin can reset passwords")
	}
	if input.NewPassword == "" {
		return apperr.BadRequest("new password is required")
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return userLookupErr(err)
	}

	if !input.AdminReset {
		ok, err := s.hasher.Verify(input.OldPassword, user.PasswordHash)
		if err != nil {
			return apperr.Storage(err)
		}
		if !ok {
			return apperr.Unauthorized("incorrect old password")
		}
	}

	passwordHash, err := s.hashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return userLookupErr(err)
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Int64("actor_id", input.Actor.ID).
		Bool("admin_reset", input.AdminReset).
		Msg("password changed")
	return nil
}

// BootstrapSuperAdmin makes sure the configured superadmin exists. The bool
// reports whether this call created it.
func (s *AuthService) BootstrapSuperAdmin(ctx context.Context, cfg config.SuperAdminConfig) (models.PublicUser, bool, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return models.PublicUser{}, false, apperr.BadRequest("superadmin email and password must be configured")
	}

	existing, err := s.users.FindByEmail(ctx, cfg.Email)
	if err == nil {
		return existing.Public(), false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.PublicUser{}, false, apperr.Storage(err)
	}

	username := cfg.Username
	if username == "" {
		username = defaultSuperAdminUsername
	}

	created, err := s.Signup(ctx, SignupInput{
		Username: username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     string(models.UserRoleSuperAdmin),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// Another instance won the race.
			existing, err := s.users.FindByEmail(ctx, cfg.Email)
			if err != nil {
				return models.PublicUser{}, false, apperr.Storage(err)
			}
			return existing.Public(), false, nil
		}
		return models.PublicUser{}, false, err
	}
	return created, true, nil
}

func userLookupErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Storage(err)
}
