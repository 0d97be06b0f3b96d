package service

import (
	"context"
	"slices"
	"strings"

	"sand/api/internal/apperr"
	"sand/api/internal/models"
)

// RoleCheck resolves a session token to its session and user, or fails with
// Unauthorized or Forbidden.
type RoleCheck func(ctx context.Context, token string) (models.Session, models.PublicUser, error)

// RequireRoles admits users whose role is one of allowed. Roles are a flat
// set: a superadmin does not satisfy a check for admin alone.
func (s *AuthService) RequireRoles(allowed ...models.UserRole) RoleCheck {
	allowed = slices.Clone(allowed)
	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = string(role)
	}
	required := strings.Join(names, ", ")

	return func(ctx context.Context, token string) (models.Session, models.PublicUser, error) {
		session, user, err := s.authenticateToken(ctx, token)
		if err != nil {
			return models.Session{}, models.PublicUser{}, err
		}

		switch {
		case user.Role == "":
			return models.Session{}, models.PublicUser{}, apperr.Forbidden("user has no assigned role")
		case !user.Role.Valid():
			return models.Session{}, models.PublicUser{}, apperr.Forbidden("invalid user role")
		case !slices.Contains(allowed, user.Role):
			return models.Session{}, models.PublicUser{}, apperr.Forbidden("access denied, required roles: %s", required)
		}
		return session, user, nil
	}
}

// RequireSession admits any valid session regardless of role.
func (s *AuthService) RequireSession() RoleCheck {
	return s.authenticateToken
}

// authenticateToken is ValidateSession with a missing session or owner
// reported as Unauthorized, which is what callers of a guarded route see.
func (s *AuthService) authenticateToken(ctx context.Context, token string) (models.Session, models.PublicUser, error) {
	session, user, err := s.ValidateSession(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return models.Session{}, models.PublicUser{}, &apperr.Error{
				Kind:    apperr.KindUnauthorized,
				Message: "not authenticated",
				Err:     err,
			}
		}
		return models.Session{}, models.PublicUser{}, err
	}
	return session, user, nil
}
