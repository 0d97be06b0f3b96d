package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"sand/api/internal/models"
)

const userColumns = `id, username, email, password_hash, role::text, created_at`

type UserRepository struct {
	pool poolIface
}

func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user. The unique index on email decides concurrent
// signups for the same address; the loser gets ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user models.NewUser) (models.User, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, string(user.Role))
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, oops.In("repository").
			With("operation", "create user").
			With("email", user.Email).
			Wrap(err)
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, oops.In("repository").
			With("operation", "find user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, oops.In("repository").
			With("operation", "get user").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, oops.In("repository").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.In("repository").With("operation", "scan user").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("repository").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// Update applies the non-nil fields of update in a single statement.
func (r *UserRepository) Update(ctx context.Context, id int64, update models.UserUpdate) (models.User, error) {
	const query = `
		UPDATE users
		SET username = COALESCE($2, username),
		    email = COALESCE($3, email),
		    role = COALESCE($4::user_role, role)
		WHERE id = $1
		RETURNING ` + userColumns

	var role *string
	if update.Role != nil {
		raw := string(*update.Role)
		role = &raw
	}

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, update.Username, update.Email, role))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case isUniqueViolation(err):
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, oops.In("repository").
			With("operation", "update user").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return oops.In("repository").
			With("operation", "update password").
			With("user_id", id).
			Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user; the schema cascades the delete to its sessions.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return oops.In("repository").
			With("operation", "delete user").
			With("user_id", id).
			Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	); err != nil {
		return models.User{}, err
	}
	user.Role = models.UserRole(role)
	return user, nil
}
