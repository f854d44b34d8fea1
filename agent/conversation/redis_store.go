package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gpolydatas/marketing-generator/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 将会话窗口以 JSON 存入 Redis，每次 Save 刷新 TTL
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	window    int
	lockTTL   time.Duration
	// lockRefresh 续期间隔，默认 lockTTL/3
	lockRefresh time.Duration
	logger      *zap.Logger
}

// RedisStoreOptions RedisStore 参数
type RedisStoreOptions struct {
	KeyPrefix string
	TTL       time.Duration
	Window    int
	LockTTL   time.Duration
	// LockRefresh 锁续期间隔，默认 LockTTL/3
	LockRefresh time.Duration
}

type storedSession struct {
	Turns   []types.ConversationTurn `json:"turns"`
	SavedAt time.Time                `json:"saved_at"`
}

// NewRedisStore 创建 Redis 会话存储
func NewRedisStore(client redis.UniversalClient, opts RedisStoreOptions, logger *zap.Logger) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "mg:session:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.LockRefresh <= 0 || opts.LockRefresh >= opts.LockTTL {
		opts.LockRefresh = opts.LockTTL / 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:      client,
		keyPrefix:   opts.KeyPrefix,
		ttl:         opts.TTL,
		window:      opts.Window,
		lockTTL:     opts.LockTTL,
		lockRefresh: opts.LockRefresh,
		logger:      logger.With(zap.String("component", "session_store")),
	}
}

func (s *RedisStore) key(sessionID string) string { return s.keyPrefix + sessionID }

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Context, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewContext(s.window), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		// 损坏的会话按空会话处理，不阻塞用户
		s.logger.Warn("discarding corrupt session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return NewContext(s.window), nil
	}
	return restore(s.window, stored.Turns), nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Context) error {
	payload, err := json.Marshal(storedSession{Turns: c.Snapshot(), SavedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
