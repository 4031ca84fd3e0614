// internal/pipeline/analytics/cache_test.go
package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
	"hiring-pipeline/internal/pipeline/store"
)

func seedStore(t *testing.T, st store.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := st.Create(context.Background(), &models.Application{
			ID:           id,
			CurrentStage: stage.Applied,
			StageData:    models.StageDataMap{stage.Applied: &models.AppliedPayload{}},
			Timeline: []models.TimelineEvent{{
				Seq: 0, Stage: stage.Applied, Timestamp: baseTime,
			}},
			CreatedAt: baseTime,
		})
		require.NoError(t, err)
	}
}

func TestStatsCacheMissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	st := store.NewMemoryStore()
	seedStore(t, st, "a", "b")

	svc := NewService(st, client, 30*time.Second, logger.NewTestLogger(t))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.True(t, mr.Exists(statsCacheKey))

	// A third application lands, but the cached snapshot is still fresh.
	seedStore(t, st, "c")
	cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cached.Total)

	// After the TTL the next read recomputes.
	mr.FastForward(time.Minute)
	fresh, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Total)
}

func TestStatsCacheUnavailableDegradesToCompute(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	st := store.NewMemoryStore()
	seedStore(t, st, "a")

	svc := NewService(st, client, 30*time.Second, logger.NewTestLogger(t))

	// Redis down is a latency problem, never a correctness one.
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

// A corrupt cache entry is treated as a miss: recompute and overwrite.
func TestStatsCacheCorruptEntryRecomputes(t *testing.T) {
	db, mock := redismock.NewClientMock()

	st := store.NewMemoryStore()
	seedStore(t, st, "a")

	svc := NewService(st, db, 30*time.Second, logger.NewTestLogger(t))

	mock.ExpectGet(statsCacheKey).SetVal("{not json")
	mock.Regexp().ExpectSet(statsCacheKey, `.*`, 30*time.Second).SetVal("OK")

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsNoCacheConfigured(t *testing.T) {
	st := store.NewMemoryStore()
	seedStore(t, st, "a")

	svc := NewService(st, nil, 0, logger.NewTestLogger(t))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}
