package reservation

import (
	"errors"
	"fmt"

	"github.com/Ridham19/GYM-flow/internal/resource"
)

type Kind string

const (
	KindInvalidRequest       Kind = "InvalidRequest"
	KindInvalidTimeRange     Kind = "InvalidTimeRange"
	KindDurationOutOfBounds  Kind = "DurationOutOfBounds"
	KindOutsideFacilityHours Kind = "OutsideFacilityHours"
	KindOutsideResourceHours Kind = "OutsideResourceHours"
	KindResourceConflict     Kind = "ResourceConflict"
	KindNotFound             Kind = "NotFound"
	KindUnauthorized         Kind = "Unauthorized"
	KindStorageUnavailable   Kind = "StorageUnavailable"
)

// Error is the typed rejection returned by the admission service. It carries
// enough structure to render a precise message: the kind plus the offending
// resource or the conflicting reservation.
type Error struct {
	Kind          Kind
	ResourceID    string
	ReservationID string
	Window        *resource.DailyWindow
	Err           error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	switch {
	case e.ResourceID != "" && e.Window != nil:
		msg = fmt.Sprintf("%s: resource %s is available %s", msg, e.ResourceID, e.Window)
	case e.ResourceID != "":
		msg = fmt.Sprintf("%s: resource %s", msg, e.ResourceID)
	case e.ReservationID != "":
		msg = fmt.Sprintf("%s: reservation %s", msg, e.ReservationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind only, so errors.Is(err, ErrResourceConflict) holds for
// every conflict regardless of which reservation caused it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation errors are deterministic and never retried.
func (e *Error) IsValidation() bool {
	switch e.Kind {
	case KindInvalidRequest, KindInvalidTimeRange, KindDurationOutOfBounds,
		KindOutsideFacilityHours, KindOutsideResourceHours:
		return true
	}
	return false
}

var (
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
	ErrInvalidTimeRange     = &Error{Kind: KindInvalidTimeRange}
	ErrDurationOutOfBounds  = &Error{Kind: KindDurationOutOfBounds}
	ErrOutsideFacilityHours = &Error{Kind: KindOutsideFacilityHours}
	ErrOutsideResourceHours = &Error{Kind: KindOutsideResourceHours}
	ErrResourceConflict     = &Error{Kind: KindResourceConflict}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrStorageUnavailable   = &Error{Kind: KindStorageUnavailable}
)

// KindOf returns the admission kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func conflictError(with *Reservation) *Error {
	return &Error{Kind: KindResourceConflict, ReservationID: with.ID}
}
