package sqlstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"taskassign/taskboard/internal/tasks"
)

var taskColumns = []string{"id", "title", "description", "deadline", "assigned_to", "status", "feedback"}

type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) (*TaskRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &TaskRepository{db: db}, nil
}

func (r *TaskRepository) selectTasks() squirrel.SelectBuilder {
	return r.db.builder().Select(taskColumns...).From("tasks").OrderBy("id")
}

func (r *TaskRepository) list(ctx context.Context, q squirrel.SelectBuilder) ([]tasks.Task, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}
	out := []tasks.Task{}
	if err := sqlscan.Select(ctx, r.db.conn, &out, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return out, nil
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]tasks.Task, error) {
	return r.list(ctx, r.selectTasks())
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, userID int64) ([]tasks.Task, error) {
	return r.list(ctx, r.selectTasks().Where(squirrel.Eq{"assigned_to": userID}))
}

func (r *TaskRepository) ListWorkers(ctx context.Context) ([]tasks.Worker, error) {
	query, args, err := r.db.builder().
		Select("id", "username").
		From("users").
		Where(squirrel.Eq{"role": "worker"}).
		OrderBy("username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build worker query: %w", err)
	}
	out := []tasks.Worker{}
	if err := sqlscan.Select(ctx, r.db.conn, &out, query, args...); err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	return out, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (tasks.Task, error) {
	query, args, err := r.db.builder().
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return tasks.Task{}, fmt.Errorf("build task query: %w", err)
	}
	var t tasks.Task
	if err := sqlscan.Get(ctx, r.db.conn, &t, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return tasks.Task{}, tasks.ErrTaskNotFound
		}
		return tasks.Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) Create(ctx context.Context, nt tasks.NewTask) (tasks.Task, error) {
	id, err := r.db.insert(ctx, r.db.builder().
		Insert("tasks").
		Columns("title", "description", "deadline", "assigned_to", "status").
		Values(nt.Title, nt.Description, nt.Deadline.String(), nt.AssignedTo, string(tasks.StatusPending)))
	if err != nil {
		return tasks.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return tasks.Task{
		ID:          id,
		Title:       nt.Title,
		Description: nt.Description,
		Deadline:    nt.Deadline,
		AssignedTo:  nt.AssignedTo,
		Status:      tasks.StatusPending,
	}, nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, taskID, onlyAssignee int64) (int64, error) {
	where := squirrel.Eq{"id": taskID}
	if onlyAssignee != 0 {
		where["assigned_to"] = onlyAssignee
	}
	n, err := r.db.exec(ctx, r.db.builder().
		Update("tasks").
		Set("status", string(tasks.StatusCompleted)).
		Where(where))
	if err != nil {
		return 0, fmt.Errorf("update task status: %w", err)
	}
	return n, nil
}

func (r *TaskRepository) SetFeedback(ctx context.Context, taskID int64, feedback string) (int64, error) {
	n, err := r.db.exec(ctx, r.db.builder().
		Update("tasks").
		Set("feedback", feedback).
		Where(squirrel.Eq{"id": taskID}))
	if err != nil {
		return 0, fmt.Errorf("update task feedback: %w", err)
	}
	return n, nil
}
