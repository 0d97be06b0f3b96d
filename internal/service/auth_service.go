package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sand/api/internal/apperr"
	"sand/api/internal/config"
	"sand/api/internal/metrics"
	"sand/api/internal/models"
	"sand/api/internal/repository"
	"sand/api/internal/security"
)

const (
	maxUsernameLen = 50
	maxEmailLen    = 100
)

// UserStore is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user models.NewUser) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, update models.UserUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// SessionStore is implemented by repository.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, email string, expiresAt time.Time) (models.Session, error)
	FindByToken(ctx context.Context, token string) (models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, email string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	hasher   security.PasswordHasher
	cfg      *config.AppConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*AuthService)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	hasher security.PasswordHasher,
	cfg *config.AppConfig,
	log zerolog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type LoginResult struct {
	User    models.PublicUser
	Session models.Session
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (models.PublicUser, error) {
	role, err := validateSignup(input)
	if err != nil {
		return models.PublicUser{}, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return models.PublicUser{}, apperr.Conflict("email already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.PublicUser{}, apperr.Storage(err)
	}

	passwordHash, err := s.hashPassword(input.Password)
	if err != nil {
		return models.PublicUser{}, err
	}

	user, err := s.users.Create(ctx, models.NewUser{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.PublicUser{}, apperr.Conflict("email already registered")
		}
		return models.PublicUser{}, apperr.Storage(err)
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("user created")

	return user.Public(), nil
}

func validateSignup(input SignupInput) (models.UserRole, error) {
	if err := validateUsername(input.Username); err != nil {
		return "", err
	}
	if err := validateEmail(input.Email); err != nil {
		return "", err
	}
	if input.Password == "" {
		return "", apperr.BadRequest("password is required")
	}
	role, ok := models.ParseUserRole(input.Role)
	if !ok {
		return "", apperr.BadRequest("invalid role %q", input.Role)
	}
	return role, nil
}

// hashPassword turns input the hasher refuses into a BadRequest.
func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, security.ErrEmptyPassword):
		return "", apperr.BadRequest("password is required")
	case errors.Is(err, security.ErrPasswordTooLong):
		return "", apperr.BadRequest("password must be at most %d bytes", security.MaxBcryptPasswordBytes)
	default:
		return "", apperr.Storage(err)
	}
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return apperr.BadRequest("username is required")
	}
	if len(username) > maxUsernameLen {
		return apperr.BadRequest("username must be at most %d characters", maxUsernameLen)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.BadRequest("email is required")
	}
	if len(email) > maxEmailLen {
		return apperr.BadRequest("email must be at most %d characters", maxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.BadRequest("invalid email address")
	}
	return nil
}

// Authenticate checks credentials without side effects.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.PublicUser, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.PublicUser{}, apperr.NotFound("user not found")
		}
		return models.PublicUser{}, apperr.Storage(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return models.PublicUser{}, apperr.Storage(err)
	}
	if !ok {
		return models.PublicUser{}, apperr.Unauthorized("invalid credentials")
	}
	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if apperr.Is(err, apperr.KindStorage) {
			s.metrics.RecordLogin(metrics.LoginError)
		} else {
			s.metrics.RecordLogin(metrics.LoginInvalidCredentials)
		}
		return LoginResult{}, err
	}

	session, err := s.sessions.Create(ctx, user.Email, s.now().Add(s.cfg.Security.SessionTTL))
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginError)
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.NotFound("user not found")
		}
		return LoginResult{}, apperr.Storage(err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	s.log.Info().
		Int64("user_id", user.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("user logged in")

	return LoginResult{User: user, Session: session}, nil
}

// ValidateSession resolves token to its session and owner. A session is
// valid only while now is strictly before its expiry.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (models.Session, models.PublicUser, error) {
	if token == "" {
		return models.Session{}, models.PublicUser{}, apperr.Unauthorized("not authenticated")
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Session{}, models.PublicUser{}, apperr.NotFound("session not found")
		}
		return models.Session{}, models.PublicUser{}, apperr.Storage(err)
	}

	if session.ExpiredAt(s.now()) {
		return models.Session{}, models.PublicUser{}, apperr.Unauthorized("session expired")
	}

	user, err := s.users.FindByEmail(ctx, session.UserEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Session{}, models.PublicUser{}, apperr.NotFound("user not found")
		}
		return models.Session{}, models.PublicUser{}, apperr.Storage(err)
	}

	return session, user.Public(), nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.BadRequest("no session found")
	}

	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperr.NotFound("session not found")
		}
		return apperr.Storage(err)
	}

	s.log.Debug().Msg("session deleted")
	return nil
}
