// Package repotest provides an in-memory stand-in for the Postgres
// repositories. It enforces the same unique and cascade rules as the schema.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"sand/api/internal/models"
	"sand/api/internal/repository"
	"sand/api/internal/security"
)

type Store struct {
	mu            sync.Mutex
	users         map[int64]models.User
	sessions      map[string]models.Session
	nextUserID    int64
	nextSessionID int64
	failWith      error
	now           func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (s *Store) Users() *UserStore       { return &UserStore{s: s} }
func (s *Store) Sessions() *SessionStore { return &SessionStore{s: s} }

// FailWith makes every following call return err until it is cleared with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// PutSession stores session as is, bypassing the owner check. It lets tests
// plant expired or orphaned sessions.
func (s *Store) PutSession(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSessionID++
	if session.ID == 0 {
		session.ID = s.nextSessionID
	}
	s.sessions[session.SessionID] = session
}

// SessionCount returns the number of stored sessions, expired ones included.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) userByEmail(email string) (models.User, bool) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

type UserStore struct {
	s *Store
}

func (u *UserStore) Create(_ context.Context, user models.NewUser) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return models.User{}, u.s.failWith
	}
	if _, ok := u.s.userByEmail(user.Email); ok {
		return models.User{}, repository.ErrEmailTaken
	}

	u.s.nextUserID++
	created := models.User{
		ID:           u.s.nextUserID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    u.s.now().UTC(),
	}
	u.s.users[created.ID] = created
	return created, nil
}

func (u *UserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return models.User{}, u.s.failWith
	}
	user, ok := u.s.userByEmail(email)
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (u *UserStore) GetByID(_ context.Context, id int64) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return models.User{}, u.s.failWith
	}
	user, ok := u.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (u *UserStore) List(_ context.Context) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return nil, u.s.failWith
	}
	users := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (u *UserStore) Update(_ context.Context, id int64, update models.UserUpdate) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return models.User{}, u.s.failWith
	}
	user, ok := u.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}

	oldEmail := user.Email
	if update.Email != nil && *update.Email != oldEmail {
		if _, taken := u.s.userByEmail(*update.Email); taken {
			return models.User{}, repository.ErrEmailTaken
		}
		user.Email = *update.Email
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	u.s.users[id] = user

	if user.Email != oldEmail {
		for token, session := range u.s.sessions {
			if session.UserEmail == oldEmail {
				session.UserEmail = user.Email
				u.s.sessions[token] = session
			}
		}
	}
	return user, nil
}

func (u *UserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return u.s.failWith
	}
	user, ok := u.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	u.s.users[id] = user
	return nil
}

func (u *UserStore) Delete(_ context.Context, id int64) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.failWith != nil {
		return u.s.failWith
	}
	user, ok := u.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(u.s.users, id)
	for token, session := range u.s.sessions {
		if session.UserEmail == user.Email {
			delete(u.s.sessions, token)
		}
	}
	return nil
}

type SessionStore struct {
	s *Store
}

func (ss *SessionStore) Create(_ context.Context, email string, expiresAt time.Time) (models.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return models.Session{}, err
	}

	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.failWith != nil {
		return models.Session{}, ss.s.failWith
	}
	if _, ok := ss.s.userByEmail(email); !ok {
		return models.Session{}, repository.ErrUserNotFound
	}

	ss.s.nextSessionID++
	session := models.Session{
		ID:        ss.s.nextSessionID,
		SessionID: token,
		UserEmail: email,
		CreatedAt: ss.s.now().UTC(),
		ExpiresAt: expiresAt,
	}
	ss.s.sessions[token] = session
	return session, nil
}

func (ss *SessionStore) FindByToken(_ context.Context, token string) (models.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.failWith != nil {
		return models.Session{}, ss.s.failWith
	}
	session, ok := ss.s.sessions[token]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (ss *SessionStore) DeleteByToken(_ context.Context, token string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.failWith != nil {
		return ss.s.failWith
	}
	if _, ok := ss.s.sessions[token]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(ss.s.sessions, token)
	return nil
}

func (ss *SessionStore) DeleteAllForUser(_ context.Context, email string) (int64, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.failWith != nil {
		return 0, ss.s.failWith
	}
	var n int64
	for token, session := range ss.s.sessions {
		if session.UserEmail == email {
			delete(ss.s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (ss *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.failWith != nil {
		return 0, ss.s.failWith
	}
	var n int64
	for token, session := range ss.s.sessions {
		if session.ExpiredAt(now) {
			delete(ss.s.sessions, token)
			n++
		}
	}
	return n, nil
}
