package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, *InMemoryUserStore, *InMemorySessionStore) {
	t.Helper()
	users := NewInMemoryUserStore()
	sessions := NewInMemorySessionStore()
	svc, err := NewService(users, sessions, ServiceConfig{SessionTTL: ttl})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc, users, sessions
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, NewInMemorySessionStore(), ServiceConfig{SessionTTL: time.Minute}); err == nil {
		t.Fatalf("expected error without user store")
	}
	if _, err := NewService(NewInMemoryUserStore(), nil, ServiceConfig{SessionTTL: time.Minute}); err == nil {
		t.Fatalf("expected error without session store")
	}
	if _, err := NewService(NewInMemoryUserStore(), NewInMemorySessionStore(), ServiceConfig{}); err == nil {
		t.Fatalf("expected error without ttl")
	}
}

func TestSignUpCreatesWorkerWithBcryptHash(t *testing.T) {
	svc, users, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if u.Role != RoleWorker {
		t.Fatalf("expected role worker, got %q", u.Role)
	}
	if u.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}

	stored, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if stored.PasswordHash == "secret123" || !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", stored.PasswordHash)
	}
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error: %v", err)
	}
	if cost != PasswordCost {
		t.Fatalf("expected cost %d, got %d", PasswordCost, cost)
	}
}

func TestSignUpDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	_, err := svc.SignUp(ctx, "alice", "other-pass")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestSignUpRequiresCredentials(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	if _, err := svc.SignUp(context.Background(), "", "secret123"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestSignUpThenLoginAndValidateToken(t *testing.T) {
	svc, _, _ := newTestService(t, 2*time.Minute)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	session, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if session.Token == "" || session.ID == "" {
		t.Fatalf("expected non-empty token and id")
	}
	if session.Role != RoleWorker {
		t.Fatalf("expected worker session, got %q", session.Role)
	}

	validated, err := svc.ValidateToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if validated.Username != "alice" || validated.UserID != session.UserID {
		t.Fatalf("unexpected validated session: %+v", validated)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	_, wrongPass := svc.Login(ctx, "alice", "badpass")
	_, unknownUser := svc.Login(ctx, "bob", "secret123")
	if !errors.Is(wrongPass, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPass)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", unknownUser)
	}
	if wrongPass.Error() != unknownUser.Error() {
		t.Fatalf("expected identical errors, got %q and %q", wrongPass, unknownUser)
	}
}

type failingUserStore struct{ err error }

func (f failingUserStore) GetByUsername(context.Context, string) (User, error) { return User{}, f.err }
func (f failingUserStore) Create(context.Context, User) (User, error)          { return User{}, f.err }

func TestLoginStoreFailureIsNotInvalidCredentials(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc, err := NewService(failingUserStore{err: storeErr}, NewInMemorySessionStore(), ServiceConfig{SessionTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	_, err = svc.Login(context.Background(), "alice", "secret123")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials")
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestExpiredTokenIsRemoved(t *testing.T) {
	svc, _, sessions := newTestService(t, time.Second)
	ctx := context.Background()

	fakeNow := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return fakeNow }

	if _, err := svc.SignUp(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	session, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	svc.nowFunc = func() time.Time { return fakeNow.Add(2 * time.Second) }
	_, err = svc.ValidateToken(ctx, session.Token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if sessions.Len() != 0 {
		t.Fatalf("expected expired session to be deleted, %d left", sessions.Len())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	session, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}

	_, err = svc.ValidateToken(ctx, session.Token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root", "Adm1nPass!")
	if err != nil {
		t.Fatalf("EnsureAdmin() error: %v", err)
	}
	if !created {
		t.Fatalf("expected admin to be created")
	}
	created, err = svc.EnsureAdmin(ctx, "root", "another")
	if err != nil {
		t.Fatalf("EnsureAdmin() second call error: %v", err)
	}
	if created {
		t.Fatalf("expected second call to be a no-op")
	}

	u, err := users.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %q", u.Role)
	}
	session, err := svc.Login(ctx, "root", "Adm1nPass!")
	if err != nil {
		t.Fatalf("Login() as admin error: %v", err)
	}
	if !session.IsAdmin() {
		t.Fatalf("expected admin session")
	}
}

func TestSessionContextRoundTrip(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Fatalf("expected no session in empty context")
	}
	ctx := WithSession(context.Background(), Session{Username: "alice", Role: RoleWorker})
	got, ok := SessionFromContext(ctx)
	if !ok || got.Username != "alice" {
		t.Fatalf("unexpected session from context: %+v ok=%v", got, ok)
	}
}

func TestSignUpAcceptsMultibytePasswordOverBcryptLimit(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	// 42 runes, 84 bytes.
	password := strings.Repeat("пароль", 7)
	if _, err := svc.SignUp(ctx, "ivan", password); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	session, err := svc.Login(ctx, "ivan", password)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if session.Username != "ivan" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if _, err := svc.Login(ctx, "ivan", strings.Repeat("пароль", 5)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected shorter password to be rejected, got %v", err)
	}
}
