package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SubmitAndResolve(t *testing.T) {
	reg := NewRegistry()

	req := reg.Submit(KindCreate, "user1", "User One", "oracle", "You are an oracle.")
	require.NotEmpty(t, req.ID)
	assert.Equal(t, 1, reg.Len())

	reg.Bind("msg123", req.ID)

	resolved, ok := reg.Resolve("msg123")
	require.True(t, ok)
	assert.Equal(t, req.ID, resolved.ID)
	assert.Equal(t, KindCreate, resolved.Kind)
	assert.Equal(t, "oracle", resolved.Name)

	// Resolve does not remove
	_, ok = reg.Resolve("msg123")
	assert.True(t, ok)
}

func TestRegistry_UniqueIDs(t *testing.T) {
	reg := NewRegistry()
	a := reg.Submit(KindAppend, "u1", "U1", "", "extra")
	b := reg.Submit(KindAppend, "u1", "U1", "", "extra")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_CompleteIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	req := reg.Submit(KindModify, "user1", "User One", "oracle", "new content")
	reg.Bind("msg1", req.ID)

	reg.Complete(req.ID)
	assert.Equal(t, 0, reg.Len())

	// Binding is gone too
	_, ok := reg.Resolve("msg1")
	assert.False(t, ok)

	// A second completion is a no-op, not a panic
	reg.Complete(req.ID)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ResolveAfterCompletionIsStale(t *testing.T) {
	reg := NewRegistry()
	req := reg.Submit(KindCreate, "user1", "User One", "oracle", "content")
	reg.Bind("msg1", req.ID)

	// Simulate a binding that outlives its request (double decision)
	reg.mu.Lock()
	delete(reg.pending, req.ID)
	reg.mu.Unlock()

	_, ok := reg.Resolve("msg1")
	assert.False(t, ok, "Expected stale binding to fail resolution")

	// The dangling binding was dropped on first resolution
	reg.mu.Lock()
	_, bound := reg.bindings["msg1"]
	reg.mu.Unlock()
	assert.False(t, bound)
}

func TestRegistry_ResolveUnknownMessage(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Resolve("never_seen")
	assert.False(t, ok)
}

func TestRegistry_RemoveOnDeliveryFailure(t *testing.T) {
	reg := NewRegistry()
	req := reg.Submit(KindCreate, "user1", "User One", "oracle", "content")

	// Admin DM failed before any binding existed
	reg.Complete(req.ID)
	assert.Equal(t, 0, reg.Len())

	_, ok := reg.Get(req.ID)
	assert.False(t, ok)
}
