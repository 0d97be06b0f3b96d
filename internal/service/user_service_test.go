package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sand/api/internal/apperr"
	"sand/api/internal/config"
	"sand/api/internal/models"
	"sand/api/internal/security"
)

func TestChangePasswordSelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.signup(t, "root", "root@x.com", "rootpw", models.UserRoleSuperAdmin)
	alice := f.signup(t, "alice", "a@x.com", "pw1", models.UserRoleAdmin)

	before, err := f.store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      alice.ID,
		OldPassword: "wrong",
		NewPassword: "pw2",
		Actor:       root,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	after, err := f.store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	require.NoError(t, f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      alice.ID,
		OldPassword: "pw1",
		NewPassword: "pw2",
		Actor:       root,
	}))

	_, err = f.svc.Authenticate(ctx, "a@x.com", "pw2")
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, "a@x.com", "pw1")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestChangePasswordKeepsSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "a@x.com", "pw1", models.UserRoleAdmin)

	result, err := f.svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      alice.ID,
		OldPassword: "pw1",
		NewPassword: "pw2",
		Actor:       alice,
	}))

	_, _, err = f.svc.ValidateSession(ctx, result.Session.SessionID)
	assert.NoError(t, err)
}

func TestChangePasswordAdminReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.signup(t, "root", "root@x.com", "rootpw", models.UserRoleSuperAdmin)
	alice := f.signup(t, "alice", "a@x.com", "pw1", models.UserRoleAdmin)

	err := f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      root.ID,
		NewPassword: "hijack",
		Actor:       alice,
		AdminReset:  true,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      alice.ID,
		NewPassword: "reset",
		Actor:       root,
		AdminReset:  true,
	}))
	_, err = f.svc.Authenticate(ctx, "a@x.com", "reset")
	assert.NoError(t, err)
}

func TestChangePasswordRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.signup(t, "root", "root@x.com", "rootpw", models.UserRoleSuperAdmin)

	err := f.svc.ChangePassword(ctx, ChangePasswordInput{UserID: root.ID, OldPassword: "rootpw", Actor: root})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	err = f.svc.ChangePassword(ctx, ChangePasswordInput{UserID: 999, NewPassword: "x", Actor: root, AdminReset: true})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListAndGetUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	root := f.signup(t, "root", "root@x.com", "pw", models.UserRoleSuperAdmin)
	alice := f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	users, err = f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.PublicUser{root, alice}, users)

	got, err := f.svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = f.svc.GetUser(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "root", "root@x.com", "pw", models.UserRoleSuperAdmin)
	alice := f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	_, err := f.svc.UpdateUser(ctx, alice.ID, models.UserUpdate{})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	bad := models.UserRole("owner")
	_, err = f.svc.UpdateUser(ctx, alice.ID, models.UserUpdate{Role: &bad})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	taken := "root@x.com"
	_, err = f.svc.UpdateUser(ctx, alice.ID, models.UserUpdate{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	name := "alicia"
	promoted := models.UserRoleSuperAdmin
	updated, err := f.svc.UpdateUser(ctx, alice.ID, models.UserUpdate{Username: &name, Role: &promoted})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, models.UserRoleSuperAdmin, updated.Role)
	assert.Equal(t, "a@x.com", updated.Email)

	_, err = f.svc.UpdateUser(ctx, 999, models.UserUpdate{Username: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateUserEmailKeepsSessionsValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	result, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	email := "alice@x.com"
	_, err = f.svc.UpdateUser(ctx, alice.ID, models.UserUpdate{Email: &email})
	require.NoError(t, err)

	_, user, err := f.svc.ValidateSession(ctx, result.Session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)
}

func TestDeleteUserCascadesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	result, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, alice.ID))

	_, _, err = f.svc.ValidateSession(ctx, result.Session.SessionID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.GetUser(ctx, alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.svc.DeleteUser(ctx, alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBootstrapSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := config.SuperAdminConfig{Email: "root@x.com", Password: "rootpw"}

	user, created, err := f.svc.BootstrapSuperAdmin(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "SuperAdmin", user.Username)
	assert.Equal(t, models.UserRoleSuperAdmin, user.Role)

	again, created, err := f.svc.BootstrapSuperAdmin(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.svc.Authenticate(ctx, "root@x.com", "rootpw")
	assert.NoError(t, err)
}

func TestBootstrapSuperAdminRequiresCredentials(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.BootstrapSuperAdmin(context.Background(), config.SuperAdminConfig{Email: "root@x.com"})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestReapThroughStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "a@x.com", "pw", models.UserRoleAdmin)

	_, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	n, err := f.store.Sessions().DeleteExpired(ctx, f.clock.Now().Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestChangePasswordRejectsOverlongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.signup(t, "root", "root@x.com", "rootpw", models.UserRoleSuperAdmin)

	err := f.svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:      root.ID,
		OldPassword: "rootpw",
		NewPassword: strings.Repeat("p", security.MaxBcryptPasswordBytes+1),
		Actor:       root,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Authenticate(ctx, "root@x.com", "rootpw")
	assert.NoError(t, err)
}
