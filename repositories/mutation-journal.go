package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"siramm-project/web-service/models"
)

// MutationJournal keeps optimistic writes that have not succeeded yet.
// Resolving a mutation as succeeded drops it; failed ones stay listed.
type MutationJournal interface {
	Record(ctx context.Context, m models.PendingMutation) error
	Resolve(ctx context.Context, id uuid.UUID, outcome models.MutationOutcome, errMsg string) error
	List(ctx context.Context) ([]models.PendingMutation, error)
}

type MemoryJournal struct {
	mu      sync.Mutex
	order   []uuid.UUID
	entries map[uuid.UUID]models.PendingMutation
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[uuid.UUID]models.PendingMutation)}
}

func (j *MemoryJournal) Record(_ context.Context, m models.PendingMutation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.entries[m.ID]; !exists {
		j.order = append(j.order, m.ID)
	}
	j.entries[m.ID] = m
	return nil
}

func (j *MemoryJournal) Resolve(_ context.Context, id uuid.UUID, outcome models.MutationOutcome, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	m, ok := j.entries[id]
	if !ok {
		return models.ErrNotFound
	}
	if outcome == models.OutcomeSucceeded {
		delete(j.entries, id)
		for i, oid := range j.order {
			if oid == id {
				j.order = append(j.order[:i], j.order[i+1:]...)
				break
			}
		}
		return nil
	}

	now := time.Now().UTC()
	m.Outcome = outcome
	m.Error = errMsg
	m.ResolvedAt = &now
	j.entries[id] = m
	return nil
}

func (j *MemoryJournal) List(_ context.Context) ([]models.PendingMutation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]models.PendingMutation, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.entries[id])
	}
	return out, nil
}
