package reservation

import "time"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Reservation struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requester_id"`
	ResourceIDs []string   `json:"resource_ids"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (r *Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// Overlaps applies the half-open rule: intervals that only touch do not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && start.Before(r.End)
}

func (r *Reservation) Uses(resourceID string) bool {
	for _, id := range r.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Request is what a caller asks the admission service for.
type Request struct {
	RequesterID string
	ResourceIDs []string
	Start       time.Time
	End         time.Time
}

// Candidate is the shape the window resolver and overlap detector inspect.
type Candidate struct {
	ResourceIDs []string
	Start       time.Time
	End         time.Time
}

// Usage aggregates confirmed reservations of one resource over a range.
type Usage struct {
	ResourceID    string `db:"resource_id" json:"resource_id"`
	Reservations  int    `db:"reservations" json:"reservations"`
	BookedMinutes int64  `db:"booked_minutes" json:"booked_minutes"`
}

type CreateReservationRequest struct {
	ResourceIDs []string  `json:"resource_ids" binding:"required,min=1,dive,required"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
}

type CancelReservationResponse struct {
	Message string `json:"message" example:"Reservation cancelled"`
}
