package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/testutil"
)

func TestPgStore_Lifecycle(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	store := NewPgStore(db.Pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	gen := &models.BookGeneration{
		ID:        uuid.New().String(),
		Status:    models.GenerationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Create(ctx, gen))
	defer db.DeleteGeneration(t, gen.ID)

	got, err := store.Get(ctx, gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusPending, got.Status)
	assert.Nil(t, got.Book)
	assert.Nil(t, got.CompletedAt)

	running := *got
	running.Status = models.GenerationStatusRunning
	running.Progress = models.BookProgress{TotalChapters: 2, CompletedChapters: 1, CurrentChapter: 1, Progress: 50}
	require.NoError(t, store.Update(ctx, &running, models.GenerationStatusPending))

	// a second writer holding a stale status is rejected
	assert.Error(t, store.Update(ctx, &running, models.GenerationStatusPending))

	done := running
	done.Status = models.GenerationStatusCompleted
	done.CompletedAt = &now
	done.Book = &models.Book{Title: "Guide", Chapters: []models.Chapter{{Title: "Setup", State: models.ChapterComplete, IsComplete: true}}, IsComplete: true}
	require.NoError(t, store.Update(ctx, &done, models.GenerationStatusRunning))

	got, err = store.Get(ctx, gen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, got.Status)
	assert.Equal(t, 50.0, got.Progress.Progress)
	require.NotNil(t, got.Book)
	assert.True(t, got.Book.IsComplete)
	assert.NotNil(t, got.CompletedAt)
	assert.GreaterOrEqual(t, db.GetGenerationCount(t, string(models.GenerationStatusCompleted)), 1)
}

func TestPgStore_NotFound(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	store := NewPgStore(db.Pool)

	_, err := store.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrGenerationNotFound)

	err = store.Update(context.Background(), &models.BookGeneration{ID: uuid.New().String(), Status: models.GenerationStatusRunning}, models.GenerationStatusPending)
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}
