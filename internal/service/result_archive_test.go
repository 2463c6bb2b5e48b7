package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

func TestResultArchiveLifecycle(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKeyValueRepository()
	archive := NewResultArchive(store)

	results, err := archive.List(ctx)
	require.NoError(t, err)
	require.Empty(t, results)

	require.NoError(t, archive.Append(ctx, models.GradingResult{ID: "1", StudentID: "s-1", Group: "A", Score: 10}))
	require.NoError(t, archive.Append(ctx, models.GradingResult{ID: "2", StudentID: "s-1", Group: "A", Score: 20}))
	require.ErrorIs(t, archive.Append(ctx, models.GradingResult{ID: "2"}), ErrDuplicateResultID)

	results, err = archive.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", results[0].ID)
	require.Equal(t, "1", results[1].ID)

	latest, found, err := archive.FindByStudentAndGroup(ctx, "S-1", "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2", latest.ID)

	replaced, err := archive.Replace(ctx, "1", models.GradingResult{ID: "ignored", StudentID: "s-1", Group: "A", Score: 0})
	require.NoError(t, err)
	require.True(t, replaced)
	updated, err := archive.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "1", updated.ID)
	require.Zero(t, updated.Score)

	replaced, err = archive.Replace(ctx, "missing", models.GradingResult{})
	require.NoError(t, err)
	require.False(t, replaced)

	removed, err := archive.Remove(ctx, "2")
	require.NoError(t, err)
	require.True(t, removed)
	_, err = archive.Get(ctx, "2")
	require.ErrorIs(t, err, ErrResultNotFound)

	require.NoError(t, archive.Clear(ctx))
	raw, found, err := store.Get(ctx, ArchiveKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "[]", raw)
}

func TestResultArchiveKeepsCorruptStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKeyValueRepository()
	require.NoError(t, store.Set(ctx, ArchiveKey, "{not json"))

	archive := NewResultArchive(store)
	_, err := archive.List(ctx)
	require.Error(t, err)
	require.Error(t, archive.Append(ctx, models.GradingResult{ID: "1"}))

	raw, _, err := store.Get(ctx, ArchiveKey)
	require.NoError(t, err)
	require.Equal(t, "{not json", raw)
}

func TestResultArchiveFindDuplicateSource(t *testing.T) {
	ctx := context.Background()
	archive := NewResultArchive(repository.NewMemoryKeyValueRepository())

	require.NoError(t, archive.Append(ctx, models.GradingResult{ID: "1", StudentID: "a", Group: "A", Fingerprint: "copied"}))
	require.NoError(t, archive.Append(ctx, models.GradingResult{ID: "2", StudentID: "a", Group: "A", Fingerprint: "other"}))
	require.NoError(t, archive.Append(ctx, models.GradingResult{ID: "3", StudentID: "b", Group: "A", Fingerprint: "copied"}))

	source, found, err := archive.FindDuplicateSource(ctx, "A", "a", "copied")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", source.ID)

	fallback, found, err := archive.FindDuplicateSource(ctx, "a", "A", "unknown")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2", fallback.ID)

	_, found, err = archive.FindDuplicateSource(ctx, "c", "A", "copied")
	require.NoError(t, err)
	require.False(t, found)
}
