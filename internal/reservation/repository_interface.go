package reservation

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReservationNotFound        = errors.New("reservation not found")
	ErrNotFoundOrAlreadyCancelled = errors.New("reservation not found or already cancelled")

	// ErrStoreUnavailable marks transient storage failures; only these are retried.
	ErrStoreUnavailable = errors.New("reservation store unavailable")

	// ErrOverlapRejected is returned when the store itself refuses an insert
	// that would break the no-overlap invariant.
	ErrOverlapRejected = errors.New("overlapping reservation rejected by store")
	ErrDuplicateID     = errors.New("reservation id already exists")
)

// Store is the persistence contract of the admission service. Callers hold
// the serialization domain of the affected resources around ListConfirmed +
// Insert and around MarkCancelled.
type Store interface {
	// ListConfirmed returns confirmed reservations on any of resourceIDs
	// overlapping [from, to), ordered by start.
	ListConfirmed(ctx context.Context, resourceIDs []string, from, to time.Time) ([]*Reservation, error)
	Insert(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id string) (*Reservation, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) error
	ListByRequester(ctx context.Context, requesterID string) ([]*Reservation, error)
	UsageByResource(ctx context.Context, from, to time.Time) ([]Usage, error)
}
