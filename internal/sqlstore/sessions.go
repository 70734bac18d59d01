package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"taskassign/taskboard/internal/auth"
)

// SessionStore persists sessions in the sessions table. Times are stored as
// unix seconds so the column type is the same on every engine.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &SessionStore{db: db}, nil
}

type sessionRow struct {
	Token     string `db:"token"`
	SessionID string `db:"session_id"`
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

func (s *SessionStore) Get(ctx context.Context, token string) (auth.Session, error) {
	query, args, err := s.db.builder().
		Select("token", "session_id", "user_id", "username", "role", "created_at", "expires_at").
		From("sessions").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return auth.Session{}, fmt.Errorf("build session query: %w", err)
	}
	var row sessionRow
	if err := sqlscan.Get(ctx, s.db.conn, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("query session: %w", err)
	}
	return auth.Session{
		ID:        row.SessionID,
		Token:     row.Token,
		UserID:    row.UserID,
		Username:  row.Username,
		Role:      auth.Role(row.Role),
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC(),
	}, nil
}

func (s *SessionStore) Put(ctx context.Context, sess auth.Session) error {
	if sess.Token == "" {
		return fmt.Errorf("session token is required")
	}
	_, err := s.db.exec(ctx, s.db.builder().
		Insert("sessions").
		Columns("token", "session_id", "user_id", "username", "role", "created_at", "expires_at").
		Values(sess.Token, sess.ID, sess.UserID, sess.Username, string(sess.Role), sess.CreatedAt.Unix(), sess.ExpiresAt.Unix()))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.exec(ctx, s.db.builder().Delete("sessions").Where(squirrel.Eq{"token": token}))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired at or before now and reports
// how many were removed.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.db.exec(ctx, s.db.builder().Delete("sessions").Where(squirrel.LtOrEq{"expires_at": now.Unix()}))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
