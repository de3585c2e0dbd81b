package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis 分布式锁
// ============================================================================
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证"检查+删除"的原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 场景：A 获取锁 -> A 处理超时，锁自动过期 -> B 获取锁 -> A 执行完毕调用 Unlock
// 不检查 value 的话，A 会把 B 的锁删掉，所以必须用 Lua 脚本校验后再删除
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// UserGuard 的 Redis 实现
// ============================================================================

const guardRetryInterval = 100 * time.Millisecond

// RedisGuard 基于 Redis 的用户级锁
// 按用户维度加锁：不同用户可以并发操作，同一用户的资金操作串行化
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisGuard(client *redis.Client, ttl, wait time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, wait: wait}
}

func (g *RedisGuard) Acquire(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf("reward:lock:user:%d", userID)
	// value 使用 uuid，便于追踪锁的持有者
	l := NewDistributedLock(g.client, key, uuid.NewString(), g.ttl)

	maxRetries := int(g.wait/guardRetryInterval) + 1
	if err := l.Lock(ctx, guardRetryInterval, maxRetries); err != nil {
		if errors.Is(err, ErrLockFailed) {
			return nil, ErrBusy
		}
		return nil, err
	}

	release := func() {
		// 释放锁不复用业务 ctx，避免请求取消导致锁滞留到过期
		unlockCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = l.Unlock(unlockCtx)
	}
	return release, nil
}
