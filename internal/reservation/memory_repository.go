package reservation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore keeps the full history in memory. Confirmed reservations are
// additionally filed in an Index so overlap queries stay proportional to the
// days they span rather than to the history.
type memoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Reservation
	active *Index
}

func NewMemoryStore() Store {
	return &memoryStore{
		byID:   make(map[string]*Reservation),
		active: NewIndex(),
	}
}

func (s *memoryStore) ListConfirmed(_ context.Context, resourceIDs []string, from, to time.Time) ([]*Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := s.active.Overlapping(resourceIDs, from, to)
	out := make([]*Reservation, 0, len(found))
	for _, r := range found {
		out = append(out, clone(r))
	}
	return out, nil
}

func (s *memoryStore) Insert(_ context.Context, r *Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return ErrDuplicateID
	}
	if r.IsConfirmed() && len(s.active.Overlapping(r.ResourceIDs, r.Start, r.End)) > 0 {
		return ErrOverlapRejected
	}

	stored := clone(r)
	s.byID[stored.ID] = stored
	if stored.IsConfirmed() {
		s.active.Add(stored)
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return clone(r), nil
}

func (s *memoryStore) MarkCancelled(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || !r.IsConfirmed() {
		return ErrNotFoundOrAlreadyCancelled
	}

	s.active.Remove(r)
	r.Status = StatusCancelled
	r.CancelledAt = &at
	return nil
}

func (s *memoryStore) ListByRequester(_ context.Context, requesterID string) ([]*Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Reservation
	for _, r := range s.byID {
		if r.RequesterID == requesterID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) UsageByResource(_ context.Context, from, to time.Time) ([]Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byResource := make(map[string]*Usage)
	for _, r := range s.byID {
		if !r.IsConfirmed() || !r.Overlaps(from, to) {
			continue
		}
		for _, id := range r.ResourceIDs {
			u, ok := byResource[id]
			if !ok {
				u = &Usage{ResourceID: id}
				byResource[id] = u
			}
			u.Reservations++
			u.BookedMinutes += int64(r.End.Sub(r.Start) / time.Minute)
		}
	}

	out := make([]Usage, 0, len(byResource))
	for _, u := range byResource {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func clone(r *Reservation) *Reservation {
	c := *r
	c.ResourceIDs = append([]string(nil), r.ResourceIDs...)
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}
