package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"siramm-project/web-service/logging"
	"siramm-project/web-service/models"
	"siramm-project/web-service/repositories"
)

// TaskStore is the remote task store as the collection sees it.
// *repositories.TaskRepository satisfies it.
type TaskStore interface {
	List(ctx context.Context, projectID *int) ([]models.Task, error)
	Create(ctx context.Context, task models.Task) (models.Task, error)
	Update(ctx context.Context, id int, task models.Task) (models.Task, error)
	UpdateStatus(ctx context.Context, id int, status models.TaskStatus) (models.Task, error)
	Remove(ctx context.Context, id int) error
}

type RowState string

const (
	RowViewing          RowState = "viewing"
	RowEditing          RowState = "editing"
	RowSaving           RowState = "saving"
	RowEditingWithError RowState = "editing_with_error"
	RowDeleting         RowState = "deleting"
)

// InsertPolicy decides where a created task lands in the list.
type InsertPolicy int

const (
	InsertPrepend InsertPolicy = iota
	InsertAppend
)

// GlobalView is the key of the task-wide view.
const GlobalView = "all"

func ProjectView(projectID int) string {
	return fmt.Sprintf("project-%d", projectID)
}

var ErrNoDraft = fmt.Errorf("no task draft in progress: %w", models.ErrNotFound)

type row struct {
	task  models.Task
	state RowState
	err   error
}

// RowView is a row as presented to a client.
type RowView struct {
	Task         models.Task `json:"task"`
	DisplayScope string      `json:"display_scope"`
	State        RowState    `json:"state"`
	Error        string      `json:"error,omitempty"`
	PastDeadline bool        `json:"past_deadline"`
	NearDeadline bool        `json:"near_deadline"`
}

// TaskCollection is the in-memory task list of one view. Edits are applied
// locally first and reconciled with the remote store's copy afterwards.
type TaskCollection struct {
	mu        sync.Mutex
	view      string
	projectID *int
	scopes    []string
	policy    InsertPolicy
	store     TaskStore
	journal   repositories.MutationJournal

	rows     []*row
	deleting map[int]models.PendingMutation
	draft    *TaskDraft
	loaded   bool
	loadErr  error

	inflight sync.WaitGroup
}

// NewProjectCollection builds the view of one project. New tasks are
// prepended and scope options come from the project's job scope.
func NewProjectCollection(store TaskStore, journal repositories.MutationJournal, project models.Project) *TaskCollection {
	id := project.ID
	return newCollection(ProjectView(id), &id, ResolveScopes(project.JobScope), InsertPrepend, store, journal)
}

// NewGlobalCollection builds the task-wide view. New tasks are appended.
func NewGlobalCollection(store TaskStore, journal repositories.MutationJournal) *TaskCollection {
	return newCollection(GlobalView, nil, ResolveGlobalScopes(), InsertAppend, store, journal)
}

func newCollection(view string, projectID *int, scopes []string, policy InsertPolicy, store TaskStore, journal repositories.MutationJournal) *TaskCollection {
	if journal == nil {
		journal = repositories.NewMemoryJournal()
	}
	return &TaskCollection{
		view:      view,
		projectID: projectID,
		scopes:    scopes,
		policy:    policy,
		store:     store,
		journal:   journal,
		rows:      []*row{},
		deleting:  make(map[int]models.PendingMutation),
	}
}

func (c *TaskCollection) View() string { return c.view }

func (c *TaskCollection) Scopes() []string {
	return append([]string(nil), c.scopes...)
}

// Load replaces the list with the store's. A failed fetch leaves an empty
// list and sets LoadError; only ErrAuthenticationRequired is returned.
func (c *TaskCollection) Load(ctx context.Context) error {
	tasks, err := c.store.List(ctx, c.projectID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = make([]*row, 0, len(tasks))
	for _, t := range tasks {
		t.SyncCompleted()
		c.rows = append(c.rows, &row{task: t, state: RowViewing})
	}
	c.loaded = true
	c.loadErr = err
	if err != nil {
		logging.Logger.Warnf("Event ID: COLLECTION_LOAD_FAILED, Description: view %s loaded empty: %v", c.view, err)
		if errors.Is(err, models.ErrAuthenticationRequired) {
			return err
		}
	}
	return nil
}

func (c *TaskCollection) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *TaskCollection) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Tasks returns copies of the current tasks in display order.
func (c *TaskCollection) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Task, 0, len(c.rows))
	for _, r := range c.rows {
		out = append(out, r.task.Clone())
	}
	return out
}

// Rows lists the rows whose status matches; "" or "all" matches every row.
func (c *TaskCollection) Rows(status string, now time.Time) []RowView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RowView, 0, len(c.rows))
	for _, r := range c.rows {
		if status != "" && status != "all" && string(r.task.Status) != status {
			continue
		}
		out = append(out, c.viewOf(r, now))
	}
	return out
}

func (c *TaskCollection) Row(id int, now time.Time) (RowView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.find(id)
	if r == nil {
		return RowView{}, taskNotFound(id)
	}
	return c.viewOf(r, now), nil
}

func (c *TaskCollection) DisplayScope(id int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.find(id)
	if r == nil {
		return "", false
	}
	return DisplayScope(r.task.Scope, c.scopes), true
}

// RowState reports a row's state. A row whose removal is still in flight is
// RowDeleting even though it is no longer listed.
func (c *TaskCollection) RowState(id int) (RowState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r := c.find(id); r != nil {
		return r.state, true
	}
	if _, ok := c.deleting[id]; ok {
		return RowDeleting, true
	}
	return "", false
}

// SetField edits a row locally. Nothing is sent until Commit.
func (c *TaskCollection) SetField(id int, field models.TaskField, value string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.find(id)
	if r == nil {
		return models.Task{}, taskNotFound(id)
	}
	if err := applyField(&r.task, field, value); err != nil {
		return models.Task{}, err
	}
	if r.state == RowViewing {
		r.state = RowEditing
	}
	return r.task.Clone(), nil
}

// Commit sends the row's whole local copy. On success the server copy
// replaces the row; on failure the local edits stay and the row is marked.
func (c *TaskCollection) Commit(ctx context.Context, id int) (models.Task, error) {
	snapshot, err := c.beginSave(id, func(t *models.Task) error {
		if strings.TrimSpace(t.Action) == "" {
			return errActionRequired()
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return c.reconcile(ctx, id, models.MutationUpdate, func(ctx context.Context) (models.Task, error) {
		return c.store.Update(ctx, id, snapshot)
	}, snapshot)
}

// ChangeStatus sets the status locally and sends only the status.
func (c *TaskCollection) ChangeStatus(ctx context.Context, id int, status string) (models.Task, error) {
	s := models.TaskStatus(status)
	if !s.IsValid() {
		return models.Task{}, invalidStatus(status)
	}
	snapshot, err := c.beginSave(id, func(t *models.Task) error {
		t.Status = s
		t.SyncCompleted()
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return c.reconcile(ctx, id, models.MutationStatus, func(ctx context.Context) (models.Task, error) {
		return c.store.UpdateStatus(ctx, id, s)
	}, snapshot)
}

// beginSave runs prepare on the row and marks it saving. A prepare error
// leaves the row untouched.
func (c *TaskCollection) beginSave(id int, prepare func(*models.Task) error) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.find(id)
	if r == nil {
		return models.Task{}, taskNotFound(id)
	}
	if prepare != nil {
		if err := prepare(&r.task); err != nil {
			return models.Task{}, err
		}
	}
	r.state = RowSaving
	return r.task.Clone(), nil
}

func (c *TaskCollection) reconcile(ctx context.Context, id int, kind models.MutationKind, send func(context.Context) (models.Task, error), local models.Task) (models.Task, error) {
	m := c.record(ctx, id, kind)
	saved, err := send(ctx)

	c.mu.Lock()
	r := c.find(id)
	if err != nil {
		if r != nil {
			r.state = RowEditingWithError
			r.err = err
		}
		c.mu.Unlock()
		logging.Logger.Errorf("Event ID: TASK_SAVE_FAILED, Description: view %s task %d: %v", c.view, id, err)
		c.resolve(ctx, m, err)
		return models.Task{}, err
	}

	if saved.ID == 0 {
		saved.ID = id
	}
	if saved.ProjectID == 0 {
		saved.ProjectID = local.ProjectID
	}
	if saved.ProjectName == "" {
		saved.ProjectName = local.ProjectName
	}
	saved.SyncCompleted()
	// The row may have been deleted while the request was out.
	if r != nil {
		r.task = saved.Clone()
		r.state = RowViewing
		r.err = nil
	}
	c.mu.Unlock()
	c.resolve(ctx, m, nil)
	return saved, nil
}

// StartDraft opens a fresh form, replacing any previous one.
func (c *TaskCollection) StartDraft() TaskDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	projectID := 0
	if c.projectID != nil {
		projectID = *c.projectID
	}
	c.draft = NewDraft(projectID, c.scopes)
	return *c.draft.Clone()
}

func (c *TaskCollection) Draft() (TaskDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return TaskDraft{}, ErrNoDraft
	}
	return *c.draft.Clone(), nil
}

// EditDraft applies fn to the open form. A project view pins the project.
func (c *TaskCollection) EditDraft(fn func(*TaskDraft) error) (TaskDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return TaskDraft{}, ErrNoDraft
	}
	next := c.draft.Clone()
	if err := fn(next); err != nil {
		return TaskDraft{}, err
	}
	if c.projectID != nil {
		next.ProjectID = *c.projectID
	}
	c.draft = next
	return *next.Clone(), nil
}

func (c *TaskCollection) CancelDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = nil
}

// SubmitDraft creates a task from the open form.
func (c *TaskCollection) SubmitDraft(ctx context.Context) (models.Task, error) {
	d, err := c.Draft()
	if err != nil {
		return models.Task{}, err
	}
	return c.CreateNew(ctx, d)
}

// CreateNew validates the form, creates the task and inserts the server copy
// per the view's insert policy. Validation failures never reach the store.
// The open draft is discarded only on success.
func (c *TaskCollection) CreateNew(ctx context.Context, draft TaskDraft) (models.Task, error) {
	if c.projectID != nil {
		draft.ProjectID = *c.projectID
	}
	task, err := draft.toTask(c.scopes)
	if err != nil {
		return models.Task{}, err
	}

	m := c.record(ctx, 0, models.MutationCreate)
	created, err := c.store.Create(ctx, task)
	if err != nil {
		logging.Logger.Errorf("Event ID: TASK_CREATE_FAILED, Description: view %s: %v", c.view, err)
		c.resolve(ctx, m, err)
		return models.Task{}, err
	}
	created.SyncCompleted()

	c.mu.Lock()
	r := &row{task: created.Clone(), state: RowViewing}
	if c.policy == InsertPrepend {
		c.rows = append([]*row{r}, c.rows...)
	} else {
		c.rows = append(c.rows, r)
	}
	c.draft = nil
	c.mu.Unlock()

	c.resolve(ctx, m, nil)
	logging.Logger.Infof("Event ID: TASK_ROW_INSERTED, Description: view %s task %d", c.view, created.ID)
	return created, nil
}

// DeleteRow drops the row at once and removes the task in the background.
// The row is not restored if the store refuses; the failure is logged and
// left in the journal.
func (c *TaskCollection) DeleteRow(ctx context.Context, id int) (models.PendingMutation, error) {
	c.mu.Lock()
	idx := c.index(id)
	if idx < 0 {
		c.mu.Unlock()
		return models.PendingMutation{}, taskNotFound(id)
	}
	c.rows = append(c.rows[:idx], c.rows[idx+1:]...)
	m := models.NewPendingMutation(c.view, id, models.MutationDelete)
	c.deleting[id] = m
	c.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	if err := c.journal.Record(bg, m); err != nil {
		logging.Logger.Warnf("Event ID: JOURNAL_RECORD_FAILED, Description: %v", err)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		err := c.store.Remove(bg, id)

		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()

		if err != nil {
			logging.Logger.Errorf("Event ID: TASK_DELETE_FAILED, Description: view %s task %d stays on the server: %v", c.view, id, err)
		}
		c.resolve(bg, m, err)
	}()
	return m, nil
}

// Wait blocks until every background removal has finished.
func (c *TaskCollection) Wait() {
	c.inflight.Wait()
}

// Mutations lists this view's unresolved or failed writes.
func (c *TaskCollection) Mutations(ctx context.Context) ([]models.PendingMutation, error) {
	all, err := c.journal.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingMutation, 0, len(all))
	for _, m := range all {
		if m.View == c.view {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *TaskCollection) record(ctx context.Context, id int, kind models.MutationKind) models.PendingMutation {
	m := models.NewPendingMutation(c.view, id, kind)
	if err := c.journal.Record(ctx, m); err != nil {
		logging.Logger.Warnf("Event ID: JOURNAL_RECORD_FAILED, Description: %v", err)
	}
	return m
}

func (c *TaskCollection) resolve(ctx context.Context, m models.PendingMutation, err error) {
	outcome, msg := models.OutcomeSucceeded, ""
	if err != nil {
		outcome, msg = models.OutcomeFailed, err.Error()
	}
	if jerr := c.journal.Resolve(context.WithoutCancel(ctx), m.ID, outcome, msg); jerr != nil {
		logging.Logger.Warnf("Event ID: JOURNAL_RESOLVE_FAILED, Description: %v", jerr)
	}
}

func (c *TaskCollection) viewOf(r *row, now time.Time) RowView {
	v := RowView{
		Task:         r.task.Clone(),
		DisplayScope: DisplayScope(r.task.Scope, c.scopes),
		State:        r.state,
		PastDeadline: r.task.IsPastDeadline(now),
		NearDeadline: r.task.IsNearDeadline(now),
	}
	if r.err != nil {
		v.Error = r.err.Error()
	}
	return v
}

func (c *TaskCollection) find(id int) *row {
	if i := c.index(id); i >= 0 {
		return c.rows[i]
	}
	return nil
}

func (c *TaskCollection) index(id int) int {
	for i, r := range c.rows {
		if r.task.ID == id {
			return i
		}
	}
	return -1
}

func taskNotFound(id int) error {
	return fmt.Errorf("task %d: %w", id, models.ErrNotFound)
}
