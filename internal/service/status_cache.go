package service

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatusCache 轮询接口的记录快照缓存。
// Set 按记录版本号写入，已缓存的版本更新时不覆盖，慢读回填不会盖掉刚提交的写入。
type StatusCache interface {
	Get(ctx context.Context, learnerID uint, taskID string) (*model.UserTask, bool)
	Set(ctx context.Context, ut *model.UserTask)
}

func statusCacheKey(learnerID uint, taskID string) string {
	return fmt.Sprintf("codesteps:status:%d:%s", learnerID, taskID)
}

// 仅当缓存中没有更新的版本时写入
var setIfNewerScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
if cur > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'record', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatusCache(client *redis.Client, ttl time.Duration) *RedisStatusCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &RedisStatusCache{client: client, ttl: ttl}
}

func (c *RedisStatusCache) Get(ctx context.Context, learnerID uint, taskID string) (*model.UserTask, bool) {
	vals, err := c.client.HMGet(ctx, statusCacheKey(learnerID, taskID), "version", "record").Result()
	if err != nil {
		logger.Log.Warn("status cache read failed", zap.Error(err))
		return nil, false
	}
	version, ok := vals[0].(string)
	if !ok {
		return nil, false
	}
	record, ok := vals[1].(string)
	if !ok {
		return nil, false
	}
	v, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return nil, false
	}
	var ut model.UserTask
	if err := json.Unmarshal([]byte(record), &ut); err != nil {
		return nil, false
	}
	ut.Version = uint(v)
	return &ut, true
}

func (c *RedisStatusCache) Set(ctx context.Context, ut *model.UserTask) {
	raw, err := json.Marshal(ut)
	if err != nil {
		return
	}
	key := statusCacheKey(ut.LearnerID, ut.TaskID)
	err = setIfNewerScript.Run(ctx, c.client, []string{key}, ut.Version, string(raw), c.ttl.Milliseconds()).Err()
	if err == nil {
		return
	}
	logger.Log.Warn("status cache write failed", zap.Error(err))
	// 写不进去就删掉，避免继续返回旧快照
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("status cache invalidation failed", zap.Error(err))
	}
}

// NopStatusCache 未启用 Redis 时使用
type NopStatusCache struct{}

func (NopStatusCache) Get(context.Context, uint, string) (*model.UserTask, bool) { return nil, false }
func (NopStatusCache) Set(context.Context, *model.UserTask)                       {}
