package lock

import (
	"context"
	"sync"
	"time"
)

// maxIdleEntries 超过该数量后，释放时回收引用计数归零的锁
const maxIdleEntries = 1000

// KeyedLock 进程内用户级锁
//
// 每个用户对应一个容量为 1 的信号量。获取锁最多等待 wait，
// 超时返回 ErrBusy。引用计数保证：持有中或有人等待的锁永远不会被回收。
type KeyedLock struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
	wait    time.Duration
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedLock(wait time.Duration) *KeyedLock {
	return &KeyedLock{
		entries: make(map[int64]*lockEntry),
		wait:    wait,
	}
}

func (l *KeyedLock) Acquire(ctx context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[userID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.ch
				l.decRef(userID, e)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.decRef(userID, e)
		return nil, ctx.Err()
	case <-timer.C:
		l.decRef(userID, e)
		return nil, ErrBusy
	}
}

// decRef 减少引用计数，map 过大时回收空闲锁
func (l *KeyedLock) decRef(userID int64, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 && len(l.entries) > maxIdleEntries {
		delete(l.entries, userID)
	}
	l.mu.Unlock()
}

// size 当前锁表大小（测试用）
func (l *KeyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
