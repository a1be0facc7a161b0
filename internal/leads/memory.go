package leads

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps leads in process memory. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*Record
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads: make(map[string]*Record),
	}
}

var _ Store = (*MemoryStore)(nil)

// Append stores a copy of the record.
func (s *MemoryStore) Append(ctx context.Context, rec *Record) (AppendResult, error) {
	if rec == nil || rec.ID == "" {
		return AppendResult{}, fmt.Errorf("%w: record id required", ErrPersistence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[rec.ID]; exists {
		return AppendResult{}, fmt.Errorf("%w: duplicate id %s", ErrPersistence, rec.ID)
	}
	cp := *rec
	s.leads[rec.ID] = &cp
	s.order = append(s.order, rec.ID)

	return AppendResult{LeadID: rec.ID, Location: "memory://leads/" + rec.ID}, nil
}

// AppendNotes adds notes to the lead's internal notes.
func (s *MemoryStore) AppendNotes(ctx context.Context, leadID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.leads[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	rec.InternalNotes = JoinNotes(rec.InternalNotes, notes)
	return nil
}

// GetByID retrieves a copy of a stored lead.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns copies of all leads in insertion order.
func (s *MemoryStore) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.leads[id]
		out = append(out, &cp)
	}
	return out
}
