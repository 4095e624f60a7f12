package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// ReferenceCache 把劳动制度和区域的查询结果缓存到 redis
// redis 不可用时直接回退到数据库，不影响同步
type ReferenceCache struct {
	repo        *Repository
	redisClient *redis.Client
	ttl         time.Duration
	logger      *slog.Logger
}

func NewReferenceCache(repo *Repository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ReferenceCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceCache{
		repo:        repo,
		redisClient: rdb,
		ttl:         ttl,
		logger:      logger,
	}
}

func regimeCacheKey(professionalID int64) string {
	return fmt.Sprintf("labor_regime_of_professional_%d", professionalID)
}

func areaCacheKey(specialtyID int64) string {
	return fmt.Sprintf("area_of_specialty_%d", specialtyID)
}

func (c *ReferenceCache) LaborRegimeForProfessional(ctx context.Context, professionalID int64) (*domain.LaborRegime, error) {
	key := regimeCacheKey(professionalID)

	if raw, err := c.redisClient.Get(ctx, key).Bytes(); err == nil {
		var regime domain.LaborRegime
		if err := json.Unmarshal(raw, &regime); err == nil {
			return &regime, nil
		}
		c.logger.Warn("缓存中的劳动制度无法解析", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("无法读取参考数据缓存", "key", key, "error", err)
	}

	regime, err := c.repo.LaborRegimeForProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(regime); err == nil {
		c.store(ctx, key, raw)
	}

	return regime, nil
}

func (c *ReferenceCache) AreaForSpecialty(ctx context.Context, specialtyID int64) (int64, error) {
	key := areaCacheKey(specialtyID)

	if raw, err := c.redisClient.Get(ctx, key).Result(); err == nil {
		if areaID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return areaID, nil
		}
		c.logger.Warn("缓存中的区域无法解析", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("无法读取参考数据缓存", "key", key, "error", err)
	}

	areaID, err := c.repo.AreaForSpecialty(ctx, specialtyID)
	if err != nil {
		return 0, err
	}

	c.store(ctx, key, strconv.FormatInt(areaID, 10))
	return areaID, nil
}

// Invalidate 在参考数据变更后清除对应的缓存
func (c *ReferenceCache) Invalidate(ctx context.Context, professionalIDs, specialtyIDs []int64) error {
	keys := make([]string, 0, len(professionalIDs)+len(specialtyIDs))
	for _, id := range professionalIDs {
		keys = append(keys, regimeCacheKey(id))
	}
	for _, id := range specialtyIDs {
		keys = append(keys, areaCacheKey(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

func (c *ReferenceCache) store(ctx context.Context, key string, value any) {
	if err := c.redisClient.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("无法写入参考数据缓存", "key", key, "error", err)
	}
}
