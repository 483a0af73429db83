// Package lock 提供按 key 串行化的互斥锁：Redis 分布式锁与进程内锁两种实现。
package lock

import (
	"context"
	"errors"
	"fmt"
	"love-coach-go/pkg/log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrBusy 表示在 ctx 结束前未能拿到锁。
var ErrBusy = errors.New("lock: resource is busy")

// Locker 对同一个 key 的持有者做互斥。返回的 unlock 必须且只能调用一次。
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// releaseScript 只在 value 仍是自己的 token 时才删除，避免误删他人在 TTL 过期后重新拿到的锁。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript 只在 value 仍是自己的 token 时才延长过期时间。
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

const (
	defaultRetryInterval = 50 * time.Millisecond
	// DefaultTTL 在传入的 ttl 非正数时使用。
	DefaultTTL = 2 * time.Minute
)

// RedisLocker 基于 SET NX PX 的分布式锁，适用于多实例部署。
// 持有期间按 ttl/3 的间隔续期，进程崩溃后锁在 ttl 内自动过期。
type RedisLocker struct {
	rdb           *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	renewInterval time.Duration
}

// NewRedisLocker 创建 RedisLocker。ttl 是续期停止后锁的最长存活时间。
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	renew := ttl / 3
	if renew <= 0 {
		renew = ttl
	}
	return &RedisLocker{
		rdb:           rdb,
		prefix:        prefix,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		renewInterval: renew,
	}
}

// Lock 轮询 SET NX 直到成功或 ctx 结束。
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctx.Err())
			}
			return nil, fmt.Errorf("lock: redis SETNX %s: %w", fullKey, err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.keepAlive(fullKey, token, stop, done)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					// 使用独立 ctx：请求 ctx 可能已被取消，但锁仍需释放
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, token).Err()
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// keepAlive 定期续期直到 stop 关闭；发现锁已不属于自己时停止续期。
func (l *RedisLocker) keepAlive(fullKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.renewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		renewed, err := renewScript.Run(ctx, l.rdb, []string{fullKey}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			log.Warnw("[Lock] 续期失败", "key", fullKey, "error", err)
			continue
		}
		if renewed == 0 {
			log.Warnw("[Lock] 锁已丢失，停止续期", "key", fullKey)
			return
		}
	}
}

// LocalLocker 是进程内的按 key 互斥锁，未配置 Redis 时使用。
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker 创建 LocalLocker。
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctx.Err())
	}
}

func (l *LocalLocker) release(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
