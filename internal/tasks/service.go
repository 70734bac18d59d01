package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Options struct {
	// EnforceAssignee limits completion to the worker the task is assigned to.
	EnforceAssignee bool
}

type Service struct {
	repo Repository
	opts Options
	log  *slog.Logger
}

func NewService(repo Repository, opts Options, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, opts: opts, log: logger}, nil
}

// ListForViewer returns every task for admins and only the caller's own tasks
// for workers.
func (s *Service) ListForViewer(ctx context.Context, v Viewer) ([]Task, error) {
	var (
		list []Task
		err  error
	)
	if v.Admin {
		list, err = s.repo.ListAll(ctx)
	} else {
		list, err = s.repo.ListByAssignee(ctx, v.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

func (s *Service) ListWorkers(ctx context.Context) ([]Worker, error) {
	workers, err := s.repo.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

// Assign stores a new pending task. The assignee is not checked against the
// user table.
func (s *Service) Assign(ctx context.Context, nt NewTask) (Task, error) {
	nt.Title = strings.TrimSpace(nt.Title)
	if nt.Title == "" || nt.Deadline.IsZero() || nt.AssignedTo == 0 {
		return Task{}, ErrInvalidTask
	}
	t, err := s.repo.Create(ctx, nt)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Complete marks a task completed on behalf of workerID. A task that does not
// match is logged and otherwise ignored; repeating the call is harmless.
func (s *Service) Complete(ctx context.Context, taskID, workerID int64) error {
	var only int64
	if s.opts.EnforceAssignee {
		only = workerID
	}
	n, err := s.repo.MarkCompleted(ctx, taskID, only)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", taskID, err)
	}
	if n == 0 {
		s.log.WarnContext(ctx, "complete task matched no rows",
			"task_id", taskID, "worker_id", workerID, "enforce_assignee", s.opts.EnforceAssignee)
	}
	return nil
}

// GiveFeedback overwrites the feedback of a task in any status.
func (s *Service) GiveFeedback(ctx context.Context, taskID int64, feedback string) error {
	n, err := s.repo.SetFeedback(ctx, taskID, feedback)
	if err != nil {
		return fmt.Errorf("set feedback on task %d: %w", taskID, err)
	}
	if n == 0 {
		s.log.WarnContext(ctx, "feedback matched no rows", "task_id", taskID)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (Task, error) {
	return s.repo.Get(ctx, id)
}
