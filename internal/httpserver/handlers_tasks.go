package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"taskassign/taskboard/internal/audit"
	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/tasks"
)

const (
	msgInvalidForm = "Invalid form submission."
	msgGeneric     = "Something went wrong. Please try again."
)

type assignForm struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=10000"`
	Deadline    string `validate:"required,datetime=2006-01-02"`
	AssignedTo  string `validate:"required,number"`
}

type taskIDForm struct {
	TaskID string `validate:"required,number"`
}

type feedbackForm struct {
	TaskID   string `validate:"required,number"`
	Feedback string `validate:"max=2000"`
}

type dashboardData struct {
	User        auth.Session
	IsAdmin     bool
	Tasks       []tasks.Task
	Workers     []tasks.Worker
	WorkerNames map[int64]string
}

type assignTaskData struct {
	User    auth.Session
	Workers []tasks.Worker
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	list, err := h.deps.Tasks.ListForViewer(r.Context(), tasks.Viewer{UserID: session.UserID, Admin: session.IsAdmin()})
	if err != nil {
		h.storeError(r, "list tasks", err)
		http.Error(w, msgGeneric, http.StatusInternalServerError)
		return
	}

	data := dashboardData{User: session, IsAdmin: session.IsAdmin(), Tasks: list}
	if data.IsAdmin {
		workers, err := h.deps.Tasks.ListWorkers(r.Context())
		if err != nil {
			h.storeError(r, "list workers", err)
			http.Error(w, msgGeneric, http.StatusInternalServerError)
			return
		}
		data.Workers = workers
		data.WorkerNames = make(map[int64]string, len(workers))
		for _, wk := range workers {
			data.WorkerNames[wk.ID] = wk.Username
		}
	}
	h.render(w, r, "dashboard", data)
}

func (h *handler) assignTaskPage(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	workers, err := h.deps.Tasks.ListWorkers(r.Context())
	if err != nil {
		h.storeError(r, "list workers", err)
		http.Error(w, msgGeneric, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "assign-task", assignTaskData{User: session, Workers: workers})
}

func (h *handler) assignTask(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	form := assignForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: r.PostFormValue("description"),
		Deadline:    strings.TrimSpace(r.PostFormValue("deadline")),
		AssignedTo:  strings.TrimSpace(r.PostFormValue("assigned_to")),
	}
	if err := h.validate.Struct(form); err != nil {
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return
	}
	deadline, err := tasks.ParseDate(form.Deadline)
	if err != nil {
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return
	}
	assignee, err := strconv.ParseInt(form.AssignedTo, 10, 64)
	if err != nil || assignee <= 0 {
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return
	}

	task, err := h.deps.Tasks.Assign(r.Context(), tasks.NewTask{
		Title:       form.Title,
		Description: form.Description,
		Deadline:    deadline,
		AssignedTo:  assignee,
	})
	if err != nil {
		if errors.Is(err, tasks.ErrInvalidTask) {
			http.Error(w, msgInvalidForm, http.StatusBadRequest)
			return
		}
		h.storeError(r, "assign task", err)
		h.audit(r, session.Username, audit.ActionAssign, "", audit.OutcomeFailed, err.Error())
		http.Error(w, msgGeneric, http.StatusInternalServerError)
		return
	}
	h.audit(r, session.Username, audit.ActionAssign, taskTarget(task.ID), audit.OutcomeSuccess, "assigned_to="+form.AssignedTo)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	form := taskIDForm{TaskID: strings.TrimSpace(r.PostFormValue("task_id"))}
	taskID, ok := h.parseTaskID(form, form.TaskID)
	if !ok {
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return
	}

	if err := h.deps.Tasks.Complete(r.Context(), taskID, session.UserID); err != nil {
		h.storeError(r, "complete task", err)
		h.audit(r, session.Username, audit.ActionComplete, taskTarget(taskID), audit.OutcomeFailed, err.Error())
		http.Error(w, msgGeneric, http.StatusInternalServerError)
		return
	}
	h.audit(r, session.Username, audit.ActionComplete, taskTarget(taskID), audit.OutcomeSuccess, "")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *handler) giveFeedback(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	form := feedbackForm{
		TaskID:   strings.TrimSpace(r.PostFormValue("task_id")),
		Feedback: r.PostFormValue("feedback"),
	}
	taskID, ok := h.parseTaskID(form, form.TaskID)
	if !ok {
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return
	}

	if err := h.deps.Tasks.GiveFeedback(r.Context(), taskID, form.Feedback); err != nil {
		h.storeError(r, "give feedback", err)
		h.audit(r, session.Username, audit.ActionFeedback, taskTarget(taskID), audit.OutcomeFailed, err.Error())
		http.Error(w, msgGeneric, http.StatusInternalServerError)
		return
	}
	h.audit(r, session.Username, audit.ActionFeedback, taskTarget(taskID), audit.OutcomeSuccess, "")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *handler) parseTaskID(form any, raw string) (int64, bool) {
	if err := h.validate.Struct(form); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func taskTarget(id int64) string {
	return "task:" + strconv.FormatInt(id, 10)
}
