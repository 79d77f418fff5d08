package resource

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetResources(ctx context.Context, ids []string) ([]Resource, error) {
	query := `
		SELECT id, name, kind, category, open_hour, close_hour
		FROM resources
		WHERE id = ANY($1)
	`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, err
	}

	byID := make(map[string]Resource, len(rows))
	for _, rw := range rows {
		byID[rw.ID] = rw.toResource()
	}

	return inOrder(ids, byID)
}

func (r *repository) List(ctx context.Context) ([]Resource, error) {
	query := `
		SELECT id, name, kind, category, open_hour, close_hour
		FROM resources
		ORDER BY id
	`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	resources := make([]Resource, 0, len(rows))
	for _, rw := range rows {
		resources = append(resources, rw.toResource())
	}
	return resources, nil
}

func inOrder(ids []string, byID map[string]Resource) ([]Resource, error) {
	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		res, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{ID: id}
		}
		out = append(out, res)
	}
	return out, nil
}
