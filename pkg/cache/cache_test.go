package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got payload
	found, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "k", payload{Name: "a", Count: 2}, time.Minute))
	found, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	found, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := &memoryCache{entries: make(map[string]memoryEntry), now: func() time.Time { return now }}

	require.NoError(t, c.SetJSON(ctx, "k", payload{Name: "a"}, 30*time.Second))
	now = now.Add(29 * time.Second)
	var got payload
	found, _ := c.GetJSON(ctx, "k", &got)
	assert.True(t, found)

	now = now.Add(time.Second)
	found, _ = c.GetJSON(ctx, "k", &got)
	assert.False(t, found)
}
