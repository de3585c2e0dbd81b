package lock

import (
	"context"
	"errors"
	"time"

	"rewardsystem/internal/config"

	"github.com/go-redis/redis/v8"
)

// ErrBusy 在等待窗口内未能获取锁
var ErrBusy = errors.New("操作过于频繁，请稍后重试")

// UserGuard 用户级并发保护
//
// 所有资金操作（接受推荐、发放奖励、领取收益、兑换礼品码）在进入事务前
// 必须先获取该用户的锁，保证同一用户的资金操作串行化。
// release 必须在事务结束后调用（defer）。
type UserGuard interface {
	Acquire(ctx context.Context, userID int64) (release func(), err error)
}

// NewUserGuard 按配置选择锁实现
// local：进程内锁（单实例部署）；redis：分布式锁（多实例部署）
func NewUserGuard(cfg *config.LockConfig, client *redis.Client) UserGuard {
	wait := time.Duration(cfg.WaitSeconds) * time.Second
	if cfg.Mode == "redis" {
		ttl := time.Duration(cfg.TTLSeconds) * time.Second
		return NewRedisGuard(client, ttl, wait)
	}
	return NewKeyedLock(wait)
}
