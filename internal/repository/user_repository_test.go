package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sand/api/internal/models"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "created_at"}

var fixedCreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUserRepository_Create(t *testing.T) {
	input := models.NewUser{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Role:         models.UserRoleAdmin,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      models.User
		wantErr   error
		errMsg    string
	}{
		{
			name: "inserts and returns the stored row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userRowColumns).
					AddRow(int64(1), "alice", "a@x.com", "hash", "admin", fixedCreatedAt)
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice", "a@x.com", "hash", "admin").
					WillReturnRows(rows)
			},
			want: models.User{
				ID:           1,
				Username:     "alice",
				Email:        "a@x.com",
				PasswordHash: "hash",
				Role:         models.UserRoleAdmin,
				CreatedAt:    fixedCreatedAt,
			},
		},
		{
			name: "unique violation maps to ErrEmailTaken",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice", "a@x.com", "hash", "admin").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "other failures are wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice", "a@x.com", "hash", "admin").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			got, err := repo.Create(context.Background(), input)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrEmailTaken)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantRole  models.UserRole
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userRowColumns).
					AddRow(int64(7), "root", "root@x.com", "hash", "superadmin", fixedCreatedAt)
				mock.ExpectQuery(`FROM users WHERE email = \$1`).
					WithArgs("root@x.com").
					WillReturnRows(rows)
			},
			wantRole: models.UserRoleSuperAdmin,
		},
		{
			name: "missing",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email = \$1`).
					WithArgs("root@x.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			user, err := NewUserRepository(mock).FindByEmail(context.Background(), "root@x.com")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, user.Role)
				assert.Equal(t, int64(7), user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByIDMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewUserRepository(mock).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(userRowColumns).
		AddRow(int64(1), "root", "root@x.com", "h1", "superadmin", fixedCreatedAt).
		AddRow(int64(2), "alice", "a@x.com", "h2", "admin", fixedCreatedAt)
	mock.ExpectQuery(`FROM users ORDER BY id`).WillReturnRows(rows)

	users, err := NewUserRepository(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, models.UserRoleAdmin, users[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM users ORDER BY id`).WillReturnRows(pgxmock.NewRows(userRowColumns))

	users, err := NewUserRepository(mock).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepository_Update(t *testing.T) {
	name := "bob"
	email := "b@x.com"

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "applies fields",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userRowColumns).
					AddRow(int64(2), "bob", "b@x.com", "hash", "admin", fixedCreatedAt)
				mock.ExpectQuery(`UPDATE users`).
					WithArgs(int64(2), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnRows(rows)
			},
		},
		{
			name: "missing user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users`).
					WithArgs(int64(2), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name: "email collision",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users`).
					WithArgs(int64(2), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			user, err := NewUserRepository(mock).Update(context.Background(), 2, models.UserUpdate{
				Username: &name,
				Email:    &email,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "bob", user.Username)
				assert.Equal(t, "b@x.com", user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(int64(3), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(int64(4), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.UpdatePassword(context.Background(), 3, "newhash"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 4, "newhash"), ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnError(errors.New("connection reset"))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrUserNotFound)

	err = repo.Delete(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
