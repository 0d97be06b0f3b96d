package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"sand/api/internal/models"
	"sand/api/internal/security"
)

// tokenAttempts bounds retries when a generated token hits the unique index.
const tokenAttempts = 3

const sessionColumns = `id, session_id, user_email, created_at, expires_at`

type SessionRepository struct {
	pool     poolIface
	newToken func() (string, error)
}

func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool, newToken: security.GenerateSessionToken}
}

// Create issues a fresh token for email. A missing owner surfaces as
// ErrUserNotFound through the foreign key.
func (r *SessionRepository) Create(ctx context.Context, email string, expiresAt time.Time) (models.Session, error) {
	const query = `
		INSERT INTO sessions (session_id, user_email, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + sessionColumns

	var lastErr error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := r.newToken()
		if err != nil {
			return models.Session{}, err
		}

		session, err := scanSession(r.pool.QueryRow(ctx, query, token, email, expiresAt))
		switch {
		case err == nil:
			return session, nil
		case isForeignKeyViolation(err):
			return models.Session{}, ErrUserNotFound
		case isUniqueViolation(err):
			lastErr = err
			continue
		default:
			return models.Session{}, oops.In("repository").
				With("operation", "create session").
				With("email", email).
				Wrap(err)
		}
	}

	return models.Session{}, oops.In("repository").
		With("operation", "create session").
		With("attempts", tokenAttempts).
		Wrap(fmt.Errorf("token collision: %w", lastErr))
}

func (r *SessionRepository) FindByToken(ctx context.Context, token string) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, oops.In("repository").With("operation", "find session").Wrap(err)
	}
	return session, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE session_id = $1`

	cmd, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return oops.In("repository").With("operation", "delete session").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, email string) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_email = $1`

	cmd, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return 0, oops.In("repository").
			With("operation", "delete user sessions").
			With("email", email).
			Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

// DeleteExpired removes every session with expires_at <= now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`

	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, oops.In("repository").With("operation", "delete expired sessions").Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.UserEmail,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		return models.Session{}, err
	}
	return session, nil
}
