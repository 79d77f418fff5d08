package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/Ridham19/GYM-flow/internal/lock"
	"github.com/Ridham19/GYM-flow/internal/logger"
	"github.com/Ridham19/GYM-flow/internal/metrics"
	"github.com/Ridham19/GYM-flow/internal/resource"
)

type Service interface {
	Admit(ctx context.Context, req Request) (*Reservation, error)
	Cancel(ctx context.Context, reservationID, requesterID string) error
	ListActiveByResource(ctx context.Context, resourceID string, from, to time.Time) ([]*Reservation, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*Reservation, error)
	Usage(ctx context.Context, from, to time.Time) ([]Usage, error)
}

// Authorizer decides whether requesterID may cancel r.
type Authorizer interface {
	CanCancel(ctx context.Context, requesterID string, r *Reservation) bool
}

type AuthorizerFunc func(ctx context.Context, requesterID string, r *Reservation) bool

func (f AuthorizerFunc) CanCancel(ctx context.Context, requesterID string, r *Reservation) bool {
	return f(ctx, requesterID, r)
}

// OwnerOnly lets only the requester who made a reservation cancel it.
var OwnerOnly Authorizer = AuthorizerFunc(func(_ context.Context, requesterID string, r *Reservation) bool {
	return r.RequesterID == requesterID
})

type Option func(*service)

func WithAuthorizer(a Authorizer) Option {
	return func(s *service) { s.authorizer = a }
}

// WithRetries bounds how often a transient storage failure is retried.
func WithRetries(retries int, delay time.Duration) Option {
	return func(s *service) {
		s.retries = retries
		s.retryDelay = delay
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store      Store
	resources  resource.Repository
	policy     PolicyProvider
	locker     lock.Locker
	authorizer Authorizer
	retries    int
	retryDelay time.Duration
	now        func() time.Time
	newID      func() string
}

func NewService(store Store, resources resource.Repository, policy PolicyProvider, locker lock.Locker, opts ...Option) Service {
	s := &service{
		store:      store,
		resources:  resources,
		policy:     policy,
		locker:     locker,
		authorizer: OwnerOnly,
		retries:    2,
		retryDelay: 50 * time.Millisecond,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Admit(ctx context.Context, req Request) (*Reservation, error) {
	r, err := s.admit(ctx, req)
	if err != nil {
		metrics.RecordAdmission(string(KindOf(err)))
		if KindOf(err) == KindStorageUnavailable {
			logger.Error("admission failed", "requester_id", req.RequesterID, "resource_ids", req.ResourceIDs, "error", err)
		} else {
			logger.Info("admission rejected", "requester_id", req.RequesterID, "resource_ids", req.ResourceIDs, "kind", KindOf(err))
		}
		return nil, err
	}

	metrics.RecordAdmission("admitted")
	logger.Info("reservation confirmed", "reservation_id", r.ID, "requester_id", r.RequesterID, "resource_ids", r.ResourceIDs)
	return r, nil
}

func (s *service) admit(ctx context.Context, req Request) (*Reservation, error) {
	ids := uniqueIDs(req.ResourceIDs)
	if req.RequesterID == "" || len(ids) == 0 {
		return nil, &Error{Kind: KindInvalidRequest}
	}

	resources, err := s.resources.GetResources(ctx, ids)
	if err != nil {
		var nf *resource.NotFoundError
		if errors.As(err, &nf) {
			return nil, &Error{Kind: KindNotFound, ResourceID: nf.ID}
		}
		return nil, &Error{Kind: KindStorageUnavailable, Err: err}
	}

	c := Candidate{ResourceIDs: ids, Start: req.Start.UTC(), End: req.End.UTC()}
	if err := Validate(c, resources, s.policy.GetPolicy()); err != nil {
		return nil, err
	}

	// The id is fixed before the first attempt so a retry can recognise a
	// commit that succeeded even though its acknowledgement was lost.
	r := &Reservation{
		ID:          s.newID(),
		RequesterID: req.RequesterID,
		ResourceIDs: ids,
		Start:       c.Start,
		End:         c.End,
		Status:      StatusConfirmed,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.withRetry(ctx, "admit", func() error { return s.commit(ctx, r) }); err != nil {
		return nil, err
	}
	return r, nil
}

// commit is the atomic admission section: it holds every resource's domain
// across the re-read, the conflict check and the insert.
func (s *service) commit(ctx context.Context, r *Reservation) error {
	unlock, err := s.lock(ctx, r.ResourceIDs)
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := s.store.ListConfirmed(ctx, r.ResourceIDs, r.Start, r.End)
	if err != nil {
		return err
	}

	c := Candidate{ResourceIDs: r.ResourceIDs, Start: r.Start, End: r.End}
	if conflict := FindConflict(c, r.ResourceIDs, existing); conflict != nil {
		if conflict.ID == r.ID {
			return nil
		}
		return conflictError(conflict)
	}

	err = s.store.Insert(ctx, r)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateID):
		return nil
	case errors.Is(err, ErrOverlapRejected):
		// Another process committed first; name its reservation if we can see it.
		if existing, lerr := s.store.ListConfirmed(ctx, r.ResourceIDs, r.Start, r.End); lerr == nil {
			if conflict := FindConflict(c, r.ResourceIDs, existing); conflict != nil && conflict.ID != r.ID {
				return conflictError(conflict)
			}
		}
		return &Error{Kind: KindResourceConflict, Err: err}
	}
	return err
}

func (s *service) Cancel(ctx context.Context, reservationID, requesterID string) error {
	err := s.cancel(ctx, reservationID, requesterID)
	if err != nil {
		metrics.RecordCancellation(string(KindOf(err)))
		logger.Info("cancellation rejected", "reservation_id", reservationID, "requester_id", requesterID, "kind", KindOf(err))
		return err
	}
	metrics.RecordCancellation("cancelled")
	return nil
}

func (s *service) cancel(ctx context.Context, reservationID, requesterID string) error {
	var r *Reservation
	err := s.withRetry(ctx, "get", func() error {
		var err error
		r, err = s.store.Get(ctx, reservationID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return &Error{Kind: KindNotFound, ReservationID: reservationID}
		}
		return err
	}

	if !s.authorizer.CanCancel(ctx, requesterID, r) {
		return &Error{Kind: KindUnauthorized, ReservationID: reservationID}
	}

	if !r.IsConfirmed() {
		return nil
	}

	return s.withRetry(ctx, "cancel", func() error {
		unlock, err := s.lock(ctx, r.ResourceIDs)
		if err != nil {
			return err
		}
		defer unlock()

		err = s.store.MarkCancelled(ctx, r.ID, s.now().UTC())
		if errors.Is(err, ErrNotFoundOrAlreadyCancelled) {
			// a concurrent cancel got there first
			return nil
		}
		if err == nil {
			logger.Info("reservation cancelled", "reservation_id", r.ID, "requester_id", requesterID)
		}
		return err
	})
}

func (s *service) ListActiveByResource(ctx context.Context, resourceID string, from, to time.Time) ([]*Reservation, error) {
	if resourceID == "" {
		return nil, &Error{Kind: KindInvalidRequest}
	}
	if !from.Before(to) {
		return nil, &Error{Kind: KindInvalidTimeRange}
	}
	if _, err := s.resources.GetResources(ctx, []string{resourceID}); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, ResourceID: resourceID}
		}
		return nil, &Error{Kind: KindStorageUnavailable, Err: err}
	}

	var out []*Reservation
	err := s.withRetry(ctx, "list", func() error {
		var err error
		out, err = s.store.ListConfirmed(ctx, []string{resourceID}, from.UTC(), to.UTC())
		return err
	})
	return out, err
}

func (s *service) ListByRequester(ctx context.Context, requesterID string) ([]*Reservation, error) {
	var out []*Reservation
	err := s.withRetry(ctx, "list", func() error {
		var err error
		out, err = s.store.ListByRequester(ctx, requesterID)
		return err
	})
	return out, err
}

func (s *service) Usage(ctx context.Context, from, to time.Time) ([]Usage, error) {
	if !from.Before(to) {
		return nil, &Error{Kind: KindInvalidTimeRange}
	}
	var out []Usage
	err := s.withRetry(ctx, "usage", func() error {
		var err error
		out, err = s.store.UsageByResource(ctx, from.UTC(), to.UTC())
		return err
	})
	return out, err
}

func (s *service) lock(ctx context.Context, ids []string) (func(), error) {
	started := time.Now()
	unlock, err := s.locker.Lock(ctx, ids)
	metrics.RecordLockWait(lockBackend(s.locker), time.Since(started).Seconds())
	return unlock, err
}

func lockBackend(l lock.Locker) string {
	switch l.(type) {
	case *lock.Keyed:
		return "memory"
	case *lock.Redis:
		return "redis"
	}
	return "other"
}

// withRetry runs op, retrying transient store and lock failures a bounded
// number of times. Anything else is returned after the first attempt. The
// result is always an *Error.
func (s *service) withRetry(ctx context.Context, operation string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), uint64(s.retries)),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		err := op()
		if err == nil || transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		metrics.RecordStorageRetry(operation)
		logger.Warn("retrying storage operation", "operation", operation, "wait", wait, "error", err)
	})
	if err == nil {
		return nil
	}

	var admissionErr *Error
	if errors.As(err, &admissionErr) {
		return admissionErr
	}
	return &Error{Kind: KindStorageUnavailable, Err: fmt.Errorf("%s: %w", operation, err)}
}

func transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, lock.ErrUnavailable)
}

// uniqueIDs drops empty and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
