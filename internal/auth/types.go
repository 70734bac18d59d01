package auth

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session is the server-side record behind a login cookie. It carries a copy of
// the user row taken at login time.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }
