// Package memory provides an in-memory RecordStore, used by unit tests and
// as a throwaway backend for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*domain.MessageRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]*domain.MessageRecord)}
}

func (s *RecordStore) Put(_ context.Context, rec *domain.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *RecordStore) Get(_ context.Context, key string) (*domain.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *RecordStore) ListByLocationSince(_ context.Context, location string, since time.Time) ([]*domain.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.MessageRecord
	for _, rec := range s.records {
		if rec.Location == location && !rec.SentAt.Before(since) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (s *RecordStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, rec := range s.records {
		if rec.ExpiresAt == nil {
			continue // preference records have no retention expiry
		}
		if rec.SentAt.Before(cutoff) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored records. Test helper.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
