package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"docuflow/internal/document/model"
)

// MemoryRepository keeps documents in a slice sorted by id. Reads share the
// lock; every mutation holds it exclusively for the whole collection.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs []model.Document
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) List(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]model.Document, len(r.docs))
	for i, doc := range r.docs {
		docs[i] = clone(doc)
	}
	return docs, nil
}

func (r *MemoryRepository) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	if _, err := doc.Status.Value(); err != nil {
		return model.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(doc.ID)
	if found {
		return model.Document{}, ErrConflict
	}
	created := r.now().UTC().Truncate(time.Microsecond)
	doc.CreatedAt = &created

	r.docs = append(r.docs, model.Document{})
	copy(r.docs[i+1:], r.docs[i:])
	r.docs[i] = clone(doc)
	return doc, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(id)
	if !found {
		return ErrNotFound
	}
	r.docs = append(r.docs[:i], r.docs[i+1:]...)
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := status.Value(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(id)
	if !found {
		return ErrNotFound
	}
	r.docs[i].Status = status
	return nil
}

func (r *MemoryRepository) Rename(ctx context.Context, id int64, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(id)
	if !found {
		return ErrNotFound
	}
	r.docs[i].Title = title
	return nil
}

// search must be called with mu held.
func (r *MemoryRepository) search(id int64) (int, bool) {
	i := sort.Search(len(r.docs), func(i int) bool { return r.docs[i].ID >= id })
	return i, i < len(r.docs) && r.docs[i].ID == id
}

func clone(doc model.Document) model.Document {
	if doc.CreatedAt != nil {
		t := *doc.CreatedAt
		doc.CreatedAt = &t
	}
	return doc
}
