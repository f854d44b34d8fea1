package conversation

import (
	"context"
	"sync"
)

// SessionStore 按会话 ID 管理 Context
type SessionStore interface {
	// Load 返回会话窗口；不存在时返回空窗口，不报错
	Load(ctx context.Context, sessionID string) (*Context, error)
	// Save 持久化会话窗口
	Save(ctx context.Context, sessionID string, c *Context) error
	// Delete 删除会话
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore 进程内会话存储
type MemoryStore struct {
	mu       sync.Mutex
	window   int
	sessions map[string]*Context
	busy     map[string]struct{}
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore(window int) *MemoryStore {
	return &MemoryStore{window: window, sessions: make(map[string]*Context)}
}

// Load 返回同一会话的同一个 *Context，调用方的 Append 直接生效
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[sessionID]
	if !ok {
		c = NewContext(s.window)
		s.sessions[sessionID] = c
	}
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len 当前会话数
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
