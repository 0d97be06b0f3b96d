package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sand/api/internal/apperr"
	"sand/api/internal/models"
)

func (f *fixture) loginToken(t *testing.T, email, password string) string {
	t.Helper()
	result, err := f.svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return result.Session.SessionID
}

func TestRequireRolesIsAFlatSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "root", "root@x.com", "pw", models.UserRoleSuperAdmin)
	f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	rootToken := f.loginToken(t, "root@x.com", "pw")
	adminToken := f.loginToken(t, "a@x.com", "pw")

	adminOnly := f.svc.RequireRoles(models.UserRoleAdmin)
	either := f.svc.RequireRoles(models.UserRoleSuperAdmin, models.UserRoleAdmin)
	superOnly := f.svc.RequireRoles(models.UserRoleSuperAdmin)

	_, user, err := adminOnly(ctx, adminToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, _, err = adminOnly(ctx, rootToken)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Contains(t, apperr.Message(err), "required roles: admin")

	_, _, err = either(ctx, rootToken)
	assert.NoError(t, err)
	_, _, err = either(ctx, adminToken)
	assert.NoError(t, err)

	_, _, err = superOnly(ctx, adminToken)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRequireRolesAuthenticationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)
	check := f.svc.RequireRoles(models.UserRoleAdmin)

	for _, token := range []string{"", "missing"} {
		_, _, err := check(ctx, token)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindUnauthorized), token)
	}

	token := f.loginToken(t, "a@x.com", "pw")
	f.clock.Advance(8 * 24 * time.Hour)
	_, _, err := check(ctx, token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "session expired", apperr.Message(err))
}

func TestRequireRolesRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)
	token := f.loginToken(t, "a@x.com", "pw")

	// The store accepts what the schema would not.
	role := models.UserRole("owner")
	_, err := f.store.Users().Update(ctx, alice.ID, models.UserUpdate{Role: &role})
	require.NoError(t, err)

	_, _, err = f.svc.RequireRoles(models.UserRoleAdmin)(ctx, token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, "invalid user role", apperr.Message(err))
}

func TestRequireSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "root", "root@x.com", "pw", models.UserRoleSuperAdmin)
	token := f.loginToken(t, "root@x.com", "pw")

	session, user, err := f.svc.RequireSession()(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, token, session.SessionID)
	assert.Equal(t, models.UserRoleSuperAdmin, user.Role)

	_, _, err = f.svc.RequireSession()(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}
