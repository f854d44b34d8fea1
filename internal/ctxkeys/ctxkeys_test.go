package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestID(ctx)
	assert.False(t, ok)
	_, ok = PrincipalFrom(ctx)
	assert.False(t, ok)

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithPrincipal(ctx, Principal{User: "alice", Tier: "pro"})

	id, _ := RequestID(ctx)
	assert.Equal(t, "req-1", id)
	run, _ := RunID(ctx)
	assert.Equal(t, "run-1", run)
	sess, _ := SessionID(ctx)
	assert.Equal(t, "sess-1", sess)
	p, ok := PrincipalFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "pro", p.Tier)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}
