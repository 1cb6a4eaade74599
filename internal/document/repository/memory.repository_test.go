package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"docuflow/internal/document/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignoreCreatedAt = cmpopts.IgnoreFields(model.Document{}, "CreatedAt")

func TestMemoryRepositoryCreateAndList(t *testing.T) {
	repo := NewMemoryRepository()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	for _, doc := range []model.Document{
		{ID: 3, Title: "Memo", Status: model.StatusReviewed},
		{ID: 1, Title: "NDA", Status: model.StatusDraft},
		{ID: 2, Title: "Lease", Status: model.StatusSigned},
	} {
		created, err := repo.Create(ctx, doc)
		require.NoError(t, err)
		require.NotNil(t, created.CreatedAt)
		assert.Equal(t, fixed, *created.CreatedAt)
	}

	docs, err = repo.List(ctx)
	require.NoError(t, err)
	want := []model.Document{
		{ID: 1, Title: "NDA", Status: model.StatusDraft},
		{ID: 2, Title: "Lease", Status: model.StatusSigned},
		{ID: 3, Title: "Memo", Status: model.StatusReviewed},
	}
	if diff := cmp.Diff(want, docs, ignoreCreatedAt); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryRepositoryCreateConflictKeepsOriginal(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: model.StatusDraft})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Document{ID: 1, Title: "Other", Status: model.StatusSigned})
	assert.ErrorIs(t, err, ErrConflict)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "NDA", docs[0].Title)
	assert.Equal(t, model.StatusDraft, docs[0].Status)
}

func TestMemoryRepositoryMutations(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: model.StatusDraft})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Document{ID: 2, Title: "Lease", Status: model.StatusDraft})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, 1, model.StatusSigned))
	require.NoError(t, repo.Rename(ctx, 2, "Office Lease"))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	want := []model.Document{
		{ID: 1, Title: "NDA", Status: model.StatusSigned},
		{ID: 2, Title: "Office Lease", Status: model.StatusDraft},
	}
	if diff := cmp.Diff(want, docs, ignoreCreatedAt); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, repo.Delete(ctx, 1))
	assert.ErrorIs(t, repo.Delete(ctx, 1), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 1, model.StatusDraft), ErrNotFound)
	assert.ErrorIs(t, repo.Rename(ctx, 1, "x"), ErrNotFound)

	docs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(2), docs[0].ID)
}

func TestMemoryRepositoryRejectsInvalidStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: "Lost"})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)

	_, err = repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: model.StatusDraft})
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 1, "Lost"), model.ErrInvalidStatus)
}

func TestMemoryRepositoryListReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: model.StatusDraft})
	require.NoError(t, err)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	docs[0].Title = "changed"
	*docs[0].CreatedAt = time.Time{}

	docs, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NDA", docs[0].Title)
	assert.False(t, docs[0].CreatedAt.IsZero())
}

func TestMemoryRepositoryCanceledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.Create(ctx, model.Document{ID: 1, Title: "NDA", Status: model.StatusDraft})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRepositoryConcurrentCreates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := repo.Create(ctx, model.Document{ID: id, Title: fmt.Sprintf("doc-%d", id), Status: model.StatusDraft})
			errs <- err
		}(int64(i))
		// Interleave readers with the writers.
		go func() { _, _ = repo.List(ctx) }()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, n)
	for i, doc := range docs {
		assert.Equal(t, int64(i+1), doc.ID)
	}
}
