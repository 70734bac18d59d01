package tasks

import "context"

// Repository is implemented by sqlstore for every supported dialect.
type Repository interface {
	ListAll(ctx context.Context) ([]Task, error)
	ListByAssignee(ctx context.Context, userID int64) ([]Task, error)
	ListWorkers(ctx context.Context) ([]Worker, error)
	Create(ctx context.Context, t NewTask) (Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	// MarkCompleted sets status completed. When onlyAssignee is non-zero the
	// update only matches a task assigned to that user. It returns the number
	// of rows matched.
	MarkCompleted(ctx context.Context, taskID, onlyAssignee int64) (int64, error)
	SetFeedback(ctx context.Context, taskID int64, feedback string) (int64, error)
}
