package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/logging"
	"siramm-project/web-service/models"
)

const (
	defaultScope          = "project"
	defaultPriority       = "normal"
	defaultProjectTimeout = 30 * time.Second
)

// DefaultKnownScopes is the scope enumeration accepted on writes unless
// WithKnownScopes overrides it.
var DefaultKnownScopes = []string{"project", "task", "invoice", "activity", "member"}

// TaskRepository translates between models.Task and the remote store's task
// endpoints.
type TaskRepository struct {
	remote         *Remote
	creds          credentials.Provider
	knownScopes    []string
	projectTimeout time.Duration
}

type TaskOption func(*TaskRepository)

func WithKnownScopes(scopes []string) TaskOption {
	return func(r *TaskRepository) {
		if len(scopes) > 0 {
			r.knownScopes = append([]string(nil), scopes...)
		}
	}
}

func WithProjectTasksTimeout(d time.Duration) TaskOption {
	return func(r *TaskRepository) {
		if d > 0 {
			r.projectTimeout = d
		}
	}
}

func NewTaskRepository(remote *Remote, creds credentials.Provider, opts ...TaskOption) *TaskRepository {
	r := &TaskRepository{
		remote:         remote,
		creds:          creds,
		knownScopes:    DefaultKnownScopes,
		projectTimeout: defaultProjectTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns every task, or only projectID's tasks when it is non-nil.
// The slice is never nil. On failure it is empty and err says so, which lets
// callers tell "no tasks" from "fetch failed"; callers that don't care can
// ignore err.
func (r *TaskRepository) List(ctx context.Context, projectID *int) ([]models.Task, error) {
	path := "/tasks"
	op := "list tasks"
	if projectID != nil {
		path = fmt.Sprintf("/projects/%d/tasks", *projectID)
		op = fmt.Sprintf("list tasks of project %d", *projectID)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.projectTimeout)
		defer cancel()
	}

	var wire []wireTask
	if _, err := r.remote.call(ctx, r.creds, op, http.MethodGet, path, nil, &wire); err != nil {
		logging.Logger.Errorf("Event ID: TASK_LIST_FAILED, Description: %v", err)
		return []models.Task{}, err
	}

	tasks := make([]models.Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, w.toTask())
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int) (models.Task, error) {
	var w wireTask
	if _, err := r.remote.call(ctx, r.creds, fmt.Sprintf("get task %d", id), http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, &w); err != nil {
		return models.Task{}, err
	}
	return w.toTask(), nil
}

// Create posts task and returns the stored copy with its server-assigned id.
func (r *TaskRepository) Create(ctx context.Context, task models.Task) (models.Task, error) {
	payload, err := r.payload(task)
	if err != nil {
		return models.Task{}, err
	}

	var w wireTask
	if _, err := r.remote.call(ctx, r.creds, "create task", http.MethodPost, "/tasks", payload, &w); err != nil {
		return models.Task{}, err
	}
	created := w.toTask()
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %d created in project %d", created.ID, created.ProjectID)
	return created, nil
}

// Update sends the full row. If the store replies without a body the sanitized
// local copy is returned.
func (r *TaskRepository) Update(ctx context.Context, id int, task models.Task) (models.Task, error) {
	payload, err := r.payload(task)
	if err != nil {
		return models.Task{}, err
	}

	var w wireTask
	body, err := r.remote.call(ctx, r.creds, fmt.Sprintf("update task %d", id), http.MethodPut, fmt.Sprintf("/tasks/%d", id), payload, &w)
	if err != nil {
		return models.Task{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload.echo(id, task), nil
	}
	return w.toTask(), nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int, status models.TaskStatus) (models.Task, error) {
	in := struct {
		Status models.TaskStatus `json:"status"`
	}{Status: models.ParseStatus(string(status))}

	var w wireTask
	if _, err := r.remote.call(ctx, r.creds, fmt.Sprintf("update status of task %d", id), http.MethodPatch, fmt.Sprintf("/tasks/%d/status", id), in, &w); err != nil {
		return models.Task{}, err
	}
	return w.toTask(), nil
}

// Remove deletes a task. A task that is already gone counts as deleted.
func (r *TaskRepository) Remove(ctx context.Context, id int) error {
	_, err := r.remote.call(ctx, r.creds, fmt.Sprintf("delete task %d", id), http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
	if errors.Is(err, models.ErrNotFound) {
		logging.Logger.Warnf("Event ID: TASK_ALREADY_DELETED, Description: Task %d not found (404), treated as deleted", id)
		return nil
	}
	return err
}

// SanitizeScope keeps the first token of a multi-valued scope and replaces
// labels outside the known enumeration with "project".
func (r *TaskRepository) SanitizeScope(scope string) string {
	scope = firstToken(scope)
	for _, known := range r.knownScopes {
		if scope == known {
			return scope
		}
	}
	return defaultScope
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

type taskPayload struct {
	ProjectID         int               `json:"project_id"`
	Action            string            `json:"action"`
	DueDate           *string           `json:"due_date"`
	Attachment        *string           `json:"attachment"`
	StatusDescription *string           `json:"status_description"`
	AssignedTo        *int              `json:"assigned_to,omitempty"`
	Status            models.TaskStatus `json:"status"`
	Completed         bool              `json:"completed"`
	Scope             string            `json:"scope"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Priority          string            `json:"priority"`
}

func (r *TaskRepository) payload(task models.Task) (taskPayload, error) {
	action := strings.TrimSpace(task.Action)
	if action == "" {
		return taskPayload{}, &models.ValidationError{Field: string(models.FieldAction), Message: "action is required"}
	}
	p := taskPayload{
		ProjectID:  task.ProjectID,
		Action:     action,
		AssignedTo: task.AssignedTo,
		Status:     models.ParseStatus(string(task.Status)),
		Scope:      r.SanitizeScope(task.Scope),
		Title:      action,
		Priority:   defaultPriority,
	}
	p.Completed = p.Status == models.StatusCompleted

	if d := models.NormalizeDate(task.DueDate); d != "" {
		p.DueDate = &d
	}
	if task.StatusDescription != "" {
		desc := task.StatusDescription
		p.StatusDescription = &desc
		p.Description = desc
	}
	if len(task.Attachments) > 0 {
		joined, err := models.EncodeAttachments(task.Attachments)
		if err != nil {
			return taskPayload{}, &models.ValidationError{Field: string(models.FieldAttachments), Message: err.Error()}
		}
		p.Attachment = &joined
	}
	return p, nil
}

func (p taskPayload) echo(id int, local models.Task) models.Task {
	t := local.Clone()
	t.ID = id
	t.Scope = p.Scope
	t.Status = p.Status
	t.SyncCompleted()
	return t
}

// wireTask is the store's task shape. Attachments may arrive under either key
// as a string or an array; assigned_to may be a number or a numeric string.
type wireTask struct {
	ID                int             `json:"id"`
	ProjectID         int             `json:"project_id"`
	ProjectName       string          `json:"project_name"`
	Action            string          `json:"action"`
	DueDate           *string         `json:"due_date"`
	Attachment        json.RawMessage `json:"attachment"`
	Attachments       json.RawMessage `json:"attachments"`
	StatusDescription *string         `json:"status_description"`
	Scope             string          `json:"scope"`
	AssignedTo        json.RawMessage `json:"assigned_to"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

func (w wireTask) toTask() models.Task {
	t := models.Task{
		ID:          w.ID,
		ProjectID:   w.ProjectID,
		ProjectName: w.ProjectName,
		Action:      w.Action,
		Scope:       w.Scope,
		AssignedTo:  decodeUserRef(w.AssignedTo),
		Status:      models.ParseStatus(w.Status),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if w.DueDate != nil {
		t.DueDate = models.NormalizeDate(*w.DueDate)
	}
	if w.StatusDescription != nil {
		t.StatusDescription = *w.StatusDescription
	}
	t.Attachments = decodeAttachmentField(w.Attachment)
	if len(t.Attachments) == 0 {
		t.Attachments = decodeAttachmentField(w.Attachments)
	}
	t.SyncCompleted()
	return t
}

func decodeAttachmentField(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}
	}
	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		return []string{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return []string{}
	}
	return models.DecodeAttachments(s)
}

// decodeUserRef accepts 7, "7", null and "". Anything else, including ids
// below 1, is unassigned.
func decodeUserRef(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n <= 0 {
			return nil
		}
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return models.ParseUserRef(s)
}
