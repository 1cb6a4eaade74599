package repository

import (
	"context"
	"errors"

	"docuflow/internal/document/model"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document already exists")
	// ErrCorrupt marks a stored row that cannot be read back, such as an
	// unknown status value. It is a storage failure, not a client error.
	ErrCorrupt = errors.New("corrupt document row")
)

// DocumentRepository owns the document collection. Every method is a single
// atomic operation against the backing store.
type DocumentRepository interface {
	// List returns every document ordered by id.
	List(ctx context.Context) ([]model.Document, error)
	// Create stores doc and returns it with CreatedAt set.
	// A duplicate id yields ErrConflict.
	Create(ctx context.Context, doc model.Document) (model.Document, error)
	// Delete, UpdateStatus and Rename return ErrNotFound when id is unknown.
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status model.Status) error
	Rename(ctx context.Context, id int64, title string) error
}

var (
	_ DocumentRepository = (*SQLRepository)(nil)
	_ DocumentRepository = (*MemoryRepository)(nil)
)
