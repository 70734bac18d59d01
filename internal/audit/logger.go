package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	ActionSignup   = "auth.signup"
	ActionLogin    = "auth.login"
	ActionLogout   = "auth.logout"
	ActionAssign   = "task.assign"
	ActionComplete = "task.complete"
	ActionFeedback = "task.feedback"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type Event struct {
	At        string `json:"at"`
	RequestID string `json:"request_id,omitempty"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Outcome   string `json:"outcome"`
	ClientIP  string `json:"client_ip,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Logger appends one JSON line per event to a file and mirrors the event to
// the structured logger.
type Logger struct {
	path    string
	log     *slog.Logger
	nowFunc func() time.Time
	mu      sync.Mutex
}

func NewLogger(path string, logger *slog.Logger) *Logger {
	return &Logger{path: path, log: logger, nowFunc: time.Now}
}

func (l *Logger) Log(ctx context.Context, e Event) error {
	if l == nil {
		return nil
	}
	if e.At == "" {
		e.At = l.nowFunc().UTC().Format(time.RFC3339)
	}
	if l.log != nil {
		level := slog.LevelInfo
		if e.Outcome == OutcomeFailed {
			level = slog.LevelWarn
		}
		l.log.Log(ctx, level, "audit",
			"action", e.Action,
			"actor", e.Actor,
			"target", e.Target,
			"outcome", e.Outcome,
			"request_id", e.RequestID,
		)
	}
	if l.path == "" {
		return nil
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
