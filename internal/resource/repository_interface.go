package resource

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("resource not found")

// NotFoundError names the first requested id the catalog does not know.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "resource not found: " + e.ID
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Repository is the read-only catalog lookup the admission core depends on.
// GetResources returns resources in the order of ids.
type Repository interface {
	GetResources(ctx context.Context, ids []string) ([]Resource, error)
	List(ctx context.Context) ([]Resource, error)
}
