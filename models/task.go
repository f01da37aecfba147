package models

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Statuses lists every valid status in the order the status dropdown shows them.
var Statuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked}

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// ParseStatus coerces unknown values to StatusNotStarted.
func ParseStatus(raw string) TaskStatus {
	s := TaskStatus(strings.TrimSpace(raw))
	if s.IsValid() {
		return s
	}
	return StatusNotStarted
}

// DateLayout is the layout of Task.DueDate.
const DateLayout = "2006-01-02"

type Task struct {
	ID                int        `json:"id"`
	ProjectID         int        `json:"project_id"`
	ProjectName       string     `json:"project_name,omitempty"`
	Action            string     `json:"action"`
	DueDate           string     `json:"due_date,omitempty"`
	Attachments       []string   `json:"attachments"`
	StatusDescription string     `json:"status_description,omitempty"`
	Scope             string     `json:"scope"`
	AssignedTo        *int       `json:"assigned_to,omitempty"`
	Status            TaskStatus `json:"status"`
	Completed         bool       `json:"completed"`
	CreatedAt         string     `json:"created_at,omitempty"`
	UpdatedAt         string     `json:"updated_at,omitempty"`
}

// SyncCompleted derives Completed from Status. Every write path calls it.
func (t *Task) SyncCompleted() {
	t.Completed = t.Status == StatusCompleted
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.Attachments != nil {
		c.Attachments = append([]string(nil), t.Attachments...)
	}
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		c.AssignedTo = &v
	}
	return c
}

// NormalizeDate keeps the calendar date of an ISO timestamp ("2024-05-01T00:00:00Z" -> "2024-05-01").
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, 'T'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// Due parses DueDate. ok is false when the task has no (parsable) due date.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func (t Task) IsPastDeadline(now time.Time) bool {
	due, ok := t.Due()
	if !ok {
		return false
	}
	return t.Status != StatusCompleted && due.Before(now)
}

// IsNearDeadline reports a due date within the next three days (inclusive).
func (t Task) IsNearDeadline(now time.Time) bool {
	due, ok := t.Due()
	if !ok {
		return false
	}
	days := math.Ceil(due.Sub(now).Hours() / 24)
	return days >= 0 && days <= 3
}

// ErrLossyAttachment is returned for attachment values that contain the wire separator.
var ErrLossyAttachment = errors.New("attachment contains a comma and cannot be encoded")

// EncodeAttachments joins attachments into the comma-separated wire form.
func EncodeAttachments(attachments []string) (string, error) {
	for _, a := range attachments {
		if strings.Contains(a, ",") {
			return "", ErrLossyAttachment
		}
	}
	return strings.Join(attachments, ","), nil
}

// DecodeAttachments splits the wire form, trimming entries but keeping empty ones.
func DecodeAttachments(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseUserRef converts a numeric string to a user id. Empty, non-numeric,
// zero or negative input yields nil.
func ParseUserRef(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// ParseDate accepts "" (no due date), a calendar date or an ISO timestamp and
// returns the calendar date.
func ParseDate(raw string) (string, error) {
	d := NormalizeDate(raw)
	if d == "" {
		return "", nil
	}
	if _, err := time.Parse(DateLayout, d); err != nil {
		return "", &ValidationError{Field: string(FieldDueDate), Message: "due date must look like 2006-01-02"}
	}
	return d, nil
}
