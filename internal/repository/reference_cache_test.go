package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redis 不可达时缓存应当直接回退到数据库
func TestReferenceCache_FallsBackWhenRedisUnavailable(t *testing.T) {
	repo, mock := setupMockRepository(t)

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	cache := NewReferenceCache(repo, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectQuery(`SELECT area_id FROM specialties`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"area_id"}).AddRow(int64(11)))

	areaID, err := cache.AreaForSpecialty(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(11), areaID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceCacheKeys(t *testing.T) {
	assert.Equal(t, "labor_regime_of_professional_7", regimeCacheKey(7))
	assert.Equal(t, "area_of_specialty_3", areaCacheKey(3))
}

func TestReferenceCache_Invalidate(t *testing.T) {
	repo, _ := setupMockRepository(t)

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})
	cache := NewReferenceCache(repo, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// 没有需要清除的键时不访问 redis
	require.NoError(t, cache.Invalidate(context.Background(), nil, nil))
	// redis 不可达时把错误返回给调用方
	assert.Error(t, cache.Invalidate(context.Background(), []int64{7}, []int64{3}))
}
