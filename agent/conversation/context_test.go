package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gpolydatas/marketing-generator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestContext_AppendEvictsOldest(t *testing.T) {
	c := NewContext(0)
	require.Equal(t, DefaultWindow, c.Cap())

	for i := 0; i < 8; i++ {
		c.Append(types.NewUserTurn(fmt.Sprintf("turn-%d", i)))
	}

	snap := c.Snapshot()
	require.Len(t, snap, DefaultWindow)
	assert.Equal(t, "turn-2", snap[0].Text)
	assert.Equal(t, "turn-7", snap[5].Text)
}

func TestContext_SnapshotIsIsolated(t *testing.T) {
	c := NewContext(3)
	c.Append(types.NewUserTurn("a"))
	snap := c.Snapshot()

	c.Append(types.NewUserTurn("b"))
	snap[0].Text = "mutated"

	assert.Len(t, snap, 1)
	assert.Equal(t, "a", c.Snapshot()[0].Text)
}

func TestContext_Clear(t *testing.T) {
	c := NewContext(3)
	c.Append(types.NewUserTurn("a"))
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Snapshot())

	c.Append(types.NewUserTurn("b"))
	assert.Equal(t, 1, c.Len())
}

func TestContext_ConcurrentAppend(t *testing.T) {
	c := NewContext(DefaultWindow)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Append(types.NewUserTurn(fmt.Sprint(i)))
			_ = c.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, DefaultWindow, c.Len())
}

// 任意追加序列后，窗口等于全序列的最后 min(n, cap) 项
func TestProperty_ContextWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 10).Draw(rt, "capacity")
		texts := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,8}`)).Draw(rt, "texts")

		c := NewContext(capacity)
		for i, text := range texts {
			c.Append(types.NewUserTurn(text))
			if c.Len() > capacity {
				rt.Fatalf("len %d exceeds cap %d after append %d", c.Len(), capacity, i)
			}
		}

		start := len(texts) - capacity
		if start < 0 {
			start = 0
		}
		want := texts[start:]
		snap := c.Snapshot()
		if len(snap) != len(want) {
			rt.Fatalf("snapshot len = %d, want %d", len(snap), len(want))
		}
		for i := range want {
			if snap[i].Text != want[i] {
				rt.Fatalf("snap[%d] = %q, want %q", i, snap[i].Text, want[i])
			}
		}
	})
}
