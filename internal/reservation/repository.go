package reservation

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type row struct {
	ID          string         `db:"id"`
	RequesterID string         `db:"requester_id"`
	ResourceIDs pq.StringArray `db:"resource_ids"`
	StartTime   time.Time      `db:"start_time"`
	EndTime     time.Time      `db:"end_time"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	CancelledAt sql.NullTime   `db:"cancelled_at"`
}

func (r row) toReservation() *Reservation {
	res := &Reservation{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		ResourceIDs: []string(r.ResourceIDs),
		Start:       r.StartTime.UTC(),
		End:         r.EndTime.UTC(),
		Status:      Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.CancelledAt.Valid {
		at := r.CancelledAt.Time.UTC()
		res.CancelledAt = &at
	}
	return res
}

type repository struct {
	db *sqlx.DB
}

// NewRepository returns the Postgres Store. Besides the reservations table it
// maintains reservation_resources, whose exclusion constraint rejects
// overlapping active periods on the same resource even across processes.
func NewRepository(db *sqlx.DB) Store {
	return &repository{db: db}
}

func (r *repository) ListConfirmed(ctx context.Context, resourceIDs []string, from, to time.Time) ([]*Reservation, error) {
	query := `
		SELECT id, requester_id, resource_ids, start_time, end_time, status, created_at, cancelled_at
		FROM reservations
		WHERE status = 'confirmed' AND resource_ids && $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time, id
	`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(resourceIDs), from, to); err != nil {
		return nil, classify(err)
	}
	return toReservations(rows), nil
}

func (r *repository) Insert(ctx context.Context, res *Reservation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, requester_id, resource_ids, start_time, end_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.ID, res.RequesterID, pq.Array(res.ResourceIDs), res.Start, res.End, string(res.Status), res.CreatedAt)
	if err != nil {
		return classify(err)
	}

	active := res.IsConfirmed()
	for _, resourceID := range res.ResourceIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservation_resources (reservation_id, resource_id, period, active)
			VALUES ($1, $2, tstzrange($3, $4, '[)'), $5)
		`, res.ID, resourceID, res.Start, res.End, active)
		if err != nil {
			return classify(err)
		}
	}

	return classify(tx.Commit())
}

func (r *repository) Get(ctx context.Context, id string) (*Reservation, error) {
	query := `
		SELECT id, requester_id, resource_ids, start_time, end_time, status, created_at, cancelled_at
		FROM reservations
		WHERE id = $1
	`

	var rw row
	if err := r.db.GetContext(ctx, &rw, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, classify(err)
	}
	return rw.toReservation(), nil
}

func (r *repository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'confirmed'
	`, id, at)
	if err != nil {
		return classify(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rowsAffected == 0 {
		return ErrNotFoundOrAlreadyCancelled
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE reservation_resources
		SET active = FALSE
		WHERE reservation_id = $1
	`, id); err != nil {
		return classify(err)
	}

	return classify(tx.Commit())
}

func (r *repository) ListByRequester(ctx context.Context, requesterID string) ([]*Reservation, error) {
	query := `
		SELECT id, requester_id, resource_ids, start_time, end_time, status, created_at, cancelled_at
		FROM reservations
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, requesterID); err != nil {
		return nil, classify(err)
	}
	return toReservations(rows), nil
}

func (r *repository) UsageByResource(ctx context.Context, from, to time.Time) ([]Usage, error) {
	query := `
		SELECT
			rr.resource_id,
			COUNT(*) AS reservations,
			COALESCE(SUM(EXTRACT(EPOCH FROM upper(rr.period) - lower(rr.period)) / 60), 0)::BIGINT AS booked_minutes
		FROM reservation_resources rr
		WHERE rr.active AND rr.period && tstzrange($1, $2, '[)')
		GROUP BY rr.resource_id
		ORDER BY rr.resource_id
	`

	var usage []Usage
	if err := r.db.SelectContext(ctx, &usage, query, from, to); err != nil {
		return nil, classify(err)
	}
	return usage, nil
}

func toReservations(rows []row) []*Reservation {
	out := make([]*Reservation, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toReservation())
	}
	return out
}

// classify maps driver errors onto the store's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23P01":
			return fmt.Errorf("%w: %s", ErrOverlapRejected, pqErr.Message)
		case pqErr.Code == "23505" && pqErr.Constraint == "reservations_pkey":
			return ErrDuplicateID
		case pqErr.Code.Class() == "08", pqErr.Code == "57P01", pqErr.Code == "53300", pqErr.Code == "40001":
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
