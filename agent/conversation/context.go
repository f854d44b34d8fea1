package conversation

import (
	"sync"

	"github.com/gpolydatas/marketing-generator/types"
)

// DefaultWindow 默认保留的轮次数（3 次往返）
const DefaultWindow = 6

// Context 固定容量的对话窗口，并发安全
type Context struct {
	mu    sync.RWMutex
	cap   int
	turns []types.ConversationTurn
}

// NewContext 创建对话窗口；capacity <= 0 时使用 DefaultWindow
func NewContext(capacity int) *Context {
	if capacity <= 0 {
		capacity = DefaultWindow
	}
	return &Context{cap: capacity, turns: make([]types.ConversationTurn, 0, capacity)}
}

// Append 追加一轮，超出容量时从队首淘汰
func (c *Context) Append(turn types.ConversationTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
	if over := len(c.turns) - c.cap; over > 0 {
		// 复制到新切片，避免底层数组无限增长
		kept := make([]types.ConversationTurn, c.cap)
		copy(kept, c.turns[over:])
		c.turns = kept
	}
}

// Snapshot 返回当前轮次的副本，后续 Append 不影响已返回的快照
func (c *Context) Snapshot() []types.ConversationTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Clear 清空窗口
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = c.turns[:0:0]
}

// Len 当前轮次数
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Cap 窗口容量
func (c *Context) Cap() int { return c.cap }

// restore 用持久化的轮次重建窗口，仅保留最新的 cap 轮
func restore(capacity int, turns []types.ConversationTurn) *Context {
	c := NewContext(capacity)
	for _, t := range turns {
		c.Append(t)
	}
	return c
}
