package storage

import (
	"context"
	"errors"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// ErrNotFound is returned when no submission has the requested id.
var ErrNotFound = errors.New("submission not found")

// Repository persists submissions. List is newest first.
type Repository interface {
	Get(ctx context.Context, id string) (*types.Submission, error)
	List(ctx context.Context) ([]*types.Submission, error)
	Upsert(ctx context.Context, s *types.Submission) error
	// Update applies fn to the stored record and persists the result atomically with respect
	// to other writers of the same store. An error from fn aborts the write.
	Update(ctx context.Context, id string, fn func(*types.Submission) error) (*types.Submission, error)
	Close() error
}
