package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidUser        = errors.New("username and password are required")
)

// PasswordCost is the bcrypt work factor for every stored hash.
const PasswordCost = 10

// maxPasswordBytes is the bcrypt input limit. Longer passwords are cut to
// their first 72 bytes when hashed and when compared.
const maxPasswordBytes = 72

type Service struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	nowFunc  func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

type ServiceConfig struct {
	SessionTTL time.Duration
}

func NewService(users UserStore, sessions SessionStore, cfg ServiceConfig) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be > 0")
	}

	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      cfg.SessionTTL,
		nowFunc:  time.Now,
	}, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(passwordInput(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *Service) VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), passwordInput(password)) == nil
}

// SignUp registers a worker account. Admin accounts cannot be created here.
func (s *Service) SignUp(ctx context.Context, username, password string) (User, error) {
	return s.CreateUser(ctx, username, password, RoleWorker)
}

func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (User, error) {
	if username == "" || password == "" {
		return User{}, ErrInvalidUser
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u, err := s.users.Create(ctx, User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates an admin account unless the username already exists.
// The returned bool reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, fmt.Errorf("check admin user: %w", err)
	}
	if _, err := s.CreateUser(ctx, username, password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.compareDummy(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.VerifyPassword(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	token, err := generateToken(32)
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.nowFunc().UTC()
	session := Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func (s *Service) ValidateToken(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	if session.Expired(s.nowFunc()) {
		_ = s.sessions.Delete(ctx, token)
		return Session{}, ErrInvalidToken
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// compareDummy spends roughly the same time as a real password check so that
// unknown usernames are not distinguishable by latency.
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskboard-dummy-password"), PasswordCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, passwordInput(password))
}

func passwordInput(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

func generateToken(n int) (string, error) {
	if n < 16 {
		return "", fmt.Errorf("token length too short")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
