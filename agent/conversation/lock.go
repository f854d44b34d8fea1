package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSessionBusy 同一会话已有一轮在处理
var ErrSessionBusy = errors.New("session is busy")

// Locker 会话级互斥：一个会话同时只处理一轮
type Locker interface {
	// TryLock 获取锁；已被占用时返回 ErrSessionBusy
	TryLock(ctx context.Context, sessionID string) (release func(), err error)
}

// TryLock 进程内锁
func (s *MemoryStore) TryLock(_ context.Context, sessionID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy == nil {
		s.busy = make(map[string]struct{})
	}
	if _, held := s.busy[sessionID]; held {
		return nil, ErrSessionBusy
	}
	s.busy[sessionID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.busy, sessionID)
		s.mu.Unlock()
	}, nil
}

// DefaultLockTTL Redis 锁的过期时间。持有期间按 TTL/3 续期，
// 因此只决定持有者崩溃后锁多久释放，不受单轮运行时长限制。
const DefaultLockTTL = 2 * time.Minute

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// 只续期自己持有的锁
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// TryLock 基于 SET NX 的分布式锁，释放时校验 token。
// 持有期间后台续期，直到 release 被调用或锁已被他人取得。
func (s *RedisStore) TryLock(ctx context.Context, sessionID string) (func(), error) {
	key := s.key(sessionID) + ":lock"
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(key, token, sessionID, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, s.client, []string{key}, token).Err(); err != nil {
				s.logger.Warn("failed to release session lock", zap.String("session_id", sessionID), zap.Error(err))
			}
		})
	}, nil
}

func (s *RedisStore) keepAlive(key, token, sessionID string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
			cancel()
			if err != nil {
				s.logger.Warn("failed to refresh session lock", zap.String("session_id", sessionID), zap.Error(err))
				continue
			}
			if n == 0 {
				s.logger.Warn("session lock lost", zap.String("session_id", sessionID))
				return
			}
		}
	}
}
