package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, "lock:test:", ttl)
	l.retryInterval = 5 * time.Millisecond
	return l, mr
}

// exerciseMutualExclusion 并发执行临界区，断言同一时刻至多一个持有者。
func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "target-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent holders=%d, want 1", maxSeen)
	}
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	t.Parallel()
	exerciseMutualExclusion(t, NewLocalLocker())
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, _ := newRedisLocker(t, time.Minute)
	exerciseMutualExclusion(t, l)
}

func TestLocalLocker_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err=%v, want ErrBusy", err)
	}
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock b: %v", err)
	}
	unlockB()
}

func TestLocalLocker_EntriesReleased(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	unlock()
	unlock() // 重复调用无副作用

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) != 0 {
		t.Fatalf("entries=%d, want 0", len(l.entries))
	}
}

func TestRedisLocker_BusyUntilReleased(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !mr.Exists("lock:test:k") {
		t.Fatalf("lock key not set")
	}
	if ttl := mr.TTL("lock:test:k"); ttl <= 0 {
		t.Fatalf("ttl=%v, want > 0", ttl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err=%v, want ErrBusy", err)
	}

	unlock()
	if mr.Exists("lock:test:k") {
		t.Fatalf("lock key still present after unlock")
	}
}

func TestRedisLocker_ReleaseDoesNotDeleteForeignToken(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// 模拟锁过期后被另一个持有者抢占
	if err := mr.Set("lock:test:k", "someone-else"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	unlock()

	got, err := mr.Get("lock:test:k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "someone-else" {
		t.Fatalf("value=%q, want foreign token kept", got)
	}
}

func TestRedisLocker_RenewsWhileHeld(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	l.renewInterval = 5 * time.Millisecond

	unlock, err := l.Lock(context.Background(), "target:1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// 模拟一次远超 ttl 的模型调用：每次快进 40s，并给续期留出时间
	for i := 0; i < 5; i++ {
		mr.FastForward(40 * time.Second)
		time.Sleep(30 * time.Millisecond)
	}
	if !mr.Exists("lock:test:target:1") {
		t.Fatalf("lock expired while its holder was still running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "target:1"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Lock err=%v, want ErrBusy", err)
	}

	unlock()
	if mr.Exists("lock:test:target:1") {
		t.Fatalf("lock key still present after unlock")
	}
}

func TestRedisLocker_ExpiresWithoutRenewal(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	l.renewInterval = time.Hour

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	mr.FastForward(time.Minute + time.Second)
	if mr.Exists("lock:test:k") {
		t.Fatalf("lock should expire after ttl once renewal stops")
	}
}

func TestNewRedisLocker_NonPositiveTTL(t *testing.T) {
	l, mr := newRedisLocker(t, 0)
	if l.ttl != DefaultTTL {
		t.Fatalf("ttl=%s, want %s", l.ttl, DefaultTTL)
	}

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()
	if ttl := mr.TTL("lock:test:k"); ttl <= 0 {
		t.Fatalf("ttl=%v, want the lock key to expire", ttl)
	}
}
