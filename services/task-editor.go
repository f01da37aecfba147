package services

import (
	"strconv"
	"strings"

	"siramm-project/web-service/models"
)

// TaskDraft is the unsaved "new task" form of a view. AssignedTo holds the raw
// selection so an empty or bogus pick is caught when the draft is submitted.
type TaskDraft struct {
	ProjectID         int               `json:"project_id"`
	Scope             string            `json:"scope"`
	Action            string            `json:"action"`
	AssignedTo        string            `json:"assigned_to"`
	Status            models.TaskStatus `json:"status"`
	StatusDescription string            `json:"status_description"`
	DueDate           string            `json:"due_date"`
	Attachments       []string          `json:"attachments"`
}

// NewDraft seeds a form: first scope option, not started, one empty
// attachment slot.
func NewDraft(projectID int, scopes []string) *TaskDraft {
	return &TaskDraft{
		ProjectID:   projectID,
		Scope:       firstOption(scopes),
		Status:      models.StatusNotStarted,
		Attachments: []string{""},
	}
}

// DraftFromTask opens an existing task in the form. A stored scope that is not
// one of the options is shown as the first option.
func DraftFromTask(task models.Task, scopes []string) *TaskDraft {
	d := &TaskDraft{
		ProjectID:         task.ProjectID,
		Scope:             DisplayScope(task.Scope, scopes),
		Action:            task.Action,
		Status:            task.Status,
		StatusDescription: task.StatusDescription,
		DueDate:           models.NormalizeDate(task.DueDate),
		Attachments:       append([]string(nil), task.Attachments...),
	}
	if task.AssignedTo != nil {
		d.AssignedTo = strconv.Itoa(*task.AssignedTo)
	}
	if !d.Status.IsValid() {
		d.Status = models.StatusNotStarted
	}
	if len(d.Attachments) == 0 {
		d.Attachments = []string{""}
	}
	return d
}

func (d *TaskDraft) Clone() *TaskDraft {
	c := *d
	c.Attachments = append([]string(nil), d.Attachments...)
	return &c
}

func (d *TaskDraft) Set(field models.TaskField, value string) error {
	switch field {
	case models.FieldProjectID:
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || id <= 0 {
			return &models.ValidationError{Field: string(field), Message: "select a project"}
		}
		d.ProjectID = id
	case models.FieldScope:
		d.Scope = value
	case models.FieldAction:
		d.Action = value
	case models.FieldAssignedTo:
		d.AssignedTo = strings.TrimSpace(value)
	case models.FieldStatus:
		s := models.TaskStatus(value)
		if !s.IsValid() {
			return invalidStatus(value)
		}
		d.Status = s
	case models.FieldStatusDescription:
		d.StatusDescription = value
	case models.FieldDueDate:
		due, err := models.ParseDate(value)
		if err != nil {
			return err
		}
		d.DueDate = due
	case models.FieldAttachments:
		d.Attachments = models.DecodeAttachments(value)
		if len(d.Attachments) == 0 {
			d.Attachments = []string{""}
		}
	default:
		return &models.ValidationError{Field: string(field), Message: "unknown task field"}
	}
	return nil
}

func (d *TaskDraft) SetAttachment(index int, value string) error {
	if index < 0 || index >= len(d.Attachments) {
		return attachmentOutOfRange(index)
	}
	d.Attachments[index] = value
	return nil
}

func (d *TaskDraft) AddAttachment() {
	d.Attachments = append(d.Attachments, "")
}

// RemoveAttachment deletes a slot. The form always keeps at least one.
func (d *TaskDraft) RemoveAttachment(index int) error {
	if index < 0 || index >= len(d.Attachments) {
		return attachmentOutOfRange(index)
	}
	if len(d.Attachments) == 1 {
		return &models.ValidationError{Field: string(models.FieldAttachments), Message: "at least one attachment slot is kept"}
	}
	d.Attachments = append(d.Attachments[:index], d.Attachments[index+1:]...)
	return nil
}

// toTask validates the draft and builds the task to create. A multi-valued
// scope keeps its first token and an empty one falls back to the first option.
func (d *TaskDraft) toTask(scopes []string) (models.Task, error) {
	assignee := models.ParseUserRef(d.AssignedTo)
	if assignee == nil {
		return models.Task{}, &models.ValidationError{Field: string(models.FieldAssignedTo), Message: "please select a member for the task"}
	}
	action := strings.TrimSpace(d.Action)
	if action == "" {
		return models.Task{}, errActionRequired()
	}
	if d.ProjectID <= 0 {
		return models.Task{}, &models.ValidationError{Field: string(models.FieldProjectID), Message: "select a project"}
	}

	scope := d.Scope
	if i := strings.IndexByte(scope, ','); i >= 0 {
		scope = scope[:i]
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = firstOption(scopes)
	}

	status := d.Status
	if !status.IsValid() {
		status = models.StatusNotStarted
	}

	t := models.Task{
		ProjectID:         d.ProjectID,
		Action:            action,
		DueDate:           models.NormalizeDate(d.DueDate),
		Attachments:       append([]string{}, d.Attachments...),
		StatusDescription: d.StatusDescription,
		Scope:             scope,
		AssignedTo:        assignee,
		Status:            status,
	}
	t.SyncCompleted()
	return t, nil
}

// applyField edits one column of a stored task in place.
func applyField(t *models.Task, field models.TaskField, value string) error {
	switch field {
	case models.FieldScope:
		t.Scope = value
	case models.FieldAction:
		action := strings.TrimSpace(value)
		if action == "" {
			return errActionRequired()
		}
		t.Action = action
	case models.FieldAssignedTo:
		if strings.TrimSpace(value) == "" {
			t.AssignedTo = nil
			return nil
		}
		id := models.ParseUserRef(value)
		if id == nil {
			return &models.ValidationError{Field: string(field), Message: "assignee must be a user id"}
		}
		t.AssignedTo = id
	case models.FieldStatus:
		s := models.TaskStatus(value)
		if !s.IsValid() {
			return invalidStatus(value)
		}
		t.Status = s
		t.SyncCompleted()
	case models.FieldStatusDescription:
		t.StatusDescription = value
	case models.FieldDueDate:
		due, err := models.ParseDate(value)
		if err != nil {
			return err
		}
		t.DueDate = due
	case models.FieldAttachments:
		t.Attachments = models.DecodeAttachments(value)
	case models.FieldProjectID:
		return &models.ValidationError{Field: string(field), Message: "a task cannot move to another project"}
	default:
		return &models.ValidationError{Field: string(field), Message: "unknown task field"}
	}
	return nil
}

func firstOption(scopes []string) string {
	if len(scopes) == 0 {
		return fallbackScope
	}
	return scopes[0]
}

func errActionRequired() error {
	return &models.ValidationError{Field: string(models.FieldAction), Message: "action is required"}
}

func invalidStatus(value string) error {
	return &models.ValidationError{Field: string(models.FieldStatus), Message: "unknown status " + strconv.Quote(value)}
}

func attachmentOutOfRange(index int) error {
	return &models.ValidationError{Field: string(models.FieldAttachments), Message: "no attachment slot " + strconv.Itoa(index)}
}
