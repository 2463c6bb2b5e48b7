package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/models"
)

func setupKeyValueTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.KeyValue{}))
	return db
}

func exerciseKeyValueRepository(t *testing.T, repo KeyValueRepository) {
	t.Helper()
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "archive")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.Set(ctx, "archive", `[{"id":"a"}]`))
	value, found, err := repo.Get(ctx, "archive")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[{"id":"a"}]`, value)

	require.NoError(t, repo.Set(ctx, "archive", `[]`))
	value, _, err = repo.Get(ctx, "archive")
	require.NoError(t, err)
	require.Equal(t, `[]`, value)

	require.NoError(t, repo.Remove(ctx, "archive"))
	_, found, err = repo.Get(ctx, "archive")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.Remove(ctx, "missing"))
}

func TestGormKeyValueRepositoryRoundTrip(t *testing.T) {
	exerciseKeyValueRepository(t, NewGormKeyValueRepository(setupKeyValueTestDB(t)))
}

func TestRedisKeyValueRepositoryRoundTrip(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	repo := NewRedisKeyValueRepository(client, "test:")
	exerciseKeyValueRepository(t, repo)

	require.NoError(t, repo.Set(context.Background(), "settings", "{}"))
	require.True(t, mini.Exists("test:settings"))
}

func TestMemoryKeyValueRepositoryRoundTrip(t *testing.T) {
	exerciseKeyValueRepository(t, NewMemoryKeyValueRepository())
}
