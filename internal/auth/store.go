package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrSessionNotFound   = errors.New("session not found")
)

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	// Create inserts the user and returns it with the store-assigned id.
	Create(ctx context.Context, user User) (User, error)
}

type SessionStore interface {
	Get(ctx context.Context, token string) (Session, error)
	Put(ctx context.Context, session Session) error
	Delete(ctx context.Context, token string) error
}

type InMemoryUserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User)}
}

func (s *InMemoryUserStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) Create(_ context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return User{}, ErrDuplicateUsername
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Username] = user
	return user, nil
}

type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

func (s *InMemorySessionStore) Get(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *InMemorySessionStore) Put(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
