package audit

import (
	"context"
	"sync"

	"flightbook/pkg/model"

	"github.com/google/uuid"
)

// MemoryRepository keeps entries in process. Used with STORE_BACKEND=memory and in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Write(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	for _, e := range r.entries {
		if e.ID == entry.ID {
			return nil
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a copy of the recorded entries, optionally filtered by action.
func (r *MemoryRepository) Entries(action string) []model.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.AuditLog, 0, len(r.entries))
	for _, e := range r.entries {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
