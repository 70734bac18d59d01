package tasks

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) String() string { return string(s) }

// DateLayout is the wire and storage format of a deadline.
const DateLayout = "2006-01-02"

// Date is a calendar day without time or zone. Drivers disagree on how DATE
// columns come back (time.Time, string or []byte), so Scan accepts all three.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

type Task struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Deadline    Date    `db:"deadline"`
	AssignedTo  int64   `db:"assigned_to"`
	Status      Status  `db:"status"`
	Feedback    *string `db:"feedback"`
}

func (t Task) FeedbackText() string {
	if t.Feedback == nil {
		return ""
	}
	return *t.Feedback
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// Worker is the projection offered to admins when picking an assignee.
type Worker struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
}

type NewTask struct {
	Title       string
	Description string
	Deadline    Date
	AssignedTo  int64
}

// Viewer identifies who is asking for a task list.
type Viewer struct {
	UserID int64
	Admin  bool
}

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)
