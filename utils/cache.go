package utils

import (
	"SkyVault/internal/repo"
	"SkyVault/model"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

// Get reads a cached value.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set writes a cached value.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

// Delete removes a cache entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeleteByPattern deletes cache entries by pattern.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

// Exists checks whether a cache key exists.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type CacheManager struct {
	cache Cache
}

var globalCacheManager *CacheManager
var cacheManagerOnce sync.Once

// InitCacheManager initializes the cache manager.
func InitCacheManager() {
	cacheManagerOnce.Do(func() {
		globalCacheManager = &CacheManager{
			cache: NewRedisCache(repo.Redis),
		}
	})
}

// GetCacheManager returns the cache manager.
func GetCacheManager() *CacheManager {
	if globalCacheManager == nil {
		InitCacheManager()
	}
	return globalCacheManager
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

const (
	CacheKeyAssetList = "asset:list"
	CacheKeyUsage     = "user:usage"
)

type AssetListCache struct {
	Assets []model.Asset `json:"assets"`
	Total  int64         `json:"total"`
}

// GetAssetListFromCache reads a cached folder listing.
func GetAssetListFromCache(
	ctx context.Context,
	userId uint64,
	folderId uint64,
	page int,
	pageSize int,
) (*AssetListCache, bool) {
	key := BuildCacheKey(CacheKeyAssetList, userId, folderId, page, pageSize)
	var cached AssetListCache
	if err := GetCacheManager().cache.Get(ctx, key, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

// SetAssetListToCache stores a folder listing.
func SetAssetListToCache(
	ctx context.Context,
	userId uint64,
	folderId uint64,
	page int,
	pageSize int,
	data *AssetListCache,
	expiration time.Duration,
) error {
	key := BuildCacheKey(CacheKeyAssetList, userId, folderId, page, pageSize)
	return GetCacheManager().cache.Set(ctx, key, data, expiration)
}

// InvalidateAssetListCache drops every cached listing page for a user.
// Trash and move operations touch more than one folder, so invalidation is
// per user rather than per folder.
func InvalidateAssetListCache(ctx context.Context, userId uint64) error {
	manager := GetCacheManager()
	redisCache, ok := manager.cache.(*RedisCache)
	if !ok {
		return nil
	}
	pattern := BuildCacheKey(CacheKeyAssetList, userId) + ":*"
	return redisCache.DeleteByPattern(ctx, pattern)
}

// GetUsageFromCache reads cached quota usage.
func GetUsageFromCache(ctx context.Context, userId uint64) (*model.Quota, bool) {
	key := BuildCacheKey(CacheKeyUsage, userId)
	var quota model.Quota
	if err := GetCacheManager().cache.Get(ctx, key, &quota); err != nil {
		return nil, false
	}
	return &quota, true
}

// SetUsageToCache stores quota usage.
func SetUsageToCache(ctx context.Context, userId uint64, data *model.Quota, expiration time.Duration) error {
	key := BuildCacheKey(CacheKeyUsage, userId)
	return GetCacheManager().cache.Set(ctx, key, data, expiration)
}

// InvalidateUsageCache removes cached quota usage.
func InvalidateUsageCache(ctx context.Context, userId uint64) error {
	key := BuildCacheKey(CacheKeyUsage, userId)
	return GetCacheManager().cache.Delete(ctx, key)
}
