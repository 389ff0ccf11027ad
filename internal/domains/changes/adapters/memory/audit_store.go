package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

var _ ports.AuditStore = (*AuditStore)(nil)

// AuditStore keeps the audit log in process memory.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, entry domain.AuditEntry) error {
	if entry.ChangeID == "" {
		return errors.New("audit entry without change id")
	}
	if !entry.State.Valid() {
		return errors.New("audit entry with unknown state " + string(entry.State))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) History(_ context.Context) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *AuditStore) LatestStates(_ context.Context) (map[string]domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make(map[string]domain.State, len(s.entries))
	for _, entry := range s.entries {
		states[entry.ChangeID] = entry.State
	}
	return states, nil
}
