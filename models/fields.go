package models

import "fmt"

// TaskField names a user-editable task column.
type TaskField string

const (
	FieldScope             TaskField = "scope"
	FieldAction            TaskField = "action"
	FieldAssignedTo        TaskField = "assigned_to"
	FieldStatus            TaskField = "status"
	FieldStatusDescription TaskField = "status_description"
	FieldDueDate           TaskField = "due_date"
	FieldAttachments       TaskField = "attachments"
	// FieldProjectID is settable on drafts only; a stored task never changes project.
	FieldProjectID TaskField = "project_id"
)

func ParseTaskField(raw string) (TaskField, error) {
	f := TaskField(raw)
	switch f {
	case FieldScope, FieldAction, FieldAssignedTo, FieldStatus, FieldStatusDescription, FieldDueDate, FieldAttachments, FieldProjectID:
		return f, nil
	}
	return "", &ValidationError{Field: raw, Message: fmt.Sprintf("unknown task field %q", raw)}
}
