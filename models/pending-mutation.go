package models

import (
	"time"

	"github.com/google/uuid"
)

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationStatus MutationKind = "status"
	MutationDelete MutationKind = "delete"
)

type MutationOutcome string

const (
	OutcomePending   MutationOutcome = "pending"
	OutcomeSucceeded MutationOutcome = "succeeded"
	OutcomeFailed    MutationOutcome = "failed"
)

// PendingMutation records an optimistic write so rows orphaned by a failed
// request can be found later.
type PendingMutation struct {
	ID         uuid.UUID       `json:"id"`
	View       string          `json:"view"`
	TaskID     int             `json:"task_id"`
	Kind       MutationKind    `json:"kind"`
	StartedAt  time.Time       `json:"started_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	Outcome    MutationOutcome `json:"outcome"`
	Error      string          `json:"error,omitempty"`
}

func NewPendingMutation(view string, taskID int, kind MutationKind) PendingMutation {
	return PendingMutation{
		ID:        uuid.New(),
		View:      view,
		TaskID:    taskID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		Outcome:   OutcomePending,
	}
}
