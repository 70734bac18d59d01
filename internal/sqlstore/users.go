package sqlstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"taskassign/taskboard/internal/auth"
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) (*UserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &UserStore{db: db}, nil
}

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
}

func (r userRow) user() auth.User {
	return auth.User{ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash, Role: auth.Role(r.Role)}
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (auth.User, error) {
	if username == "" {
		return auth.User{}, auth.ErrUserNotFound
	}
	query, args, err := s.db.builder().
		Select("id", "username", "password_hash", "role").
		From("users").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return auth.User{}, fmt.Errorf("build user query: %w", err)
	}

	var row userRow
	if err := sqlscan.Get(ctx, s.db.conn, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, fmt.Errorf("query user: %w", err)
	}
	return row.user(), nil
}

func (s *UserStore) Create(ctx context.Context, u auth.User) (auth.User, error) {
	if u.Username == "" || u.PasswordHash == "" || !u.Role.Valid() {
		return auth.User{}, fmt.Errorf("username, password hash and a valid role are required")
	}
	id, err := s.db.insert(ctx, s.db.builder().
		Insert("users").
		Columns("username", "password_hash", "role").
		Values(u.Username, u.PasswordHash, string(u.Role)))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, auth.ErrDuplicateUsername
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return u, nil
}
