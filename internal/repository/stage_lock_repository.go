package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// StageLockRepository 提供 (文档, 阶段) 粒度的建议锁，保证同一阶段同一时刻至多一个生成在执行。
type StageLockRepository interface {
	// TryLock 尝试加锁；ok 为 false 表示锁已被他人持有。成功时返回的 unlock 只释放自己持有的锁。
	TryLock(ctx context.Context, documentID, stage string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// 只有值与加锁时写入的 token 一致时才删除，避免误删他人在锁过期后重新获得的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStageLockRepository struct {
	redisClient *redis.Client
}

// NewStageLockRepository 创建一个基于 Redis 的 StageLockRepository 实例。
func NewStageLockRepository(redisClient *redis.Client) StageLockRepository {
	return &redisStageLockRepository{redisClient: redisClient}
}

func stageLockKey(documentID, stage string) string {
	return fmt.Sprintf("stage_lock:%s:%s", documentID, stage)
}

func (r *redisStageLockRepository) TryLock(ctx context.Context, documentID, stage string, ttl time.Duration) (func(), bool, error) {
	key := stageLockKey(documentID, stage)
	token := uuid.NewString()
	ok, err := r.redisClient.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire stage lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		// 释放时使用独立上下文，调用方的上下文可能已经超时
		_ = releaseScript.Run(context.Background(), r.redisClient, []string{key}, token).Err()
	}
	return unlock, true, nil
}

// noopStageLockRepository 不做任何互斥，同一阶段的并发再生成以最后写入者为准。
type noopStageLockRepository struct{}

// NewNoopStageLockRepository 返回一个总是加锁成功的实现。
func NewNoopStageLockRepository() StageLockRepository {
	return noopStageLockRepository{}
}

func (noopStageLockRepository) TryLock(context.Context, string, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
