package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/bikerace-engine/pkg/utils/cache"
)

type counter struct {
	calls int
}

func (c *counter) load(_ context.Context, key string) (*int, error) {
	c.calls++
	if key == "bad" {
		return nil, errors.New("cannot load")
	}
	v := len(key)
	return &v, nil
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	cnt := &counter{}
	c := New(WithLoader[string, int](cnt.load))

	v, err := c.Get(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, 4, *v)
	_, err = c.Get(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt.calls)
	assert.Equal(t, 1, c.Len())

	_, err = c.Get(ctx, "bad")
	require.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(ctx, "pool")
	assert.Equal(t, 0, c.Len())
	_, err = c.Get(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, 3, cnt.calls)
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	cnt := &counter{}
	now := time.Date(2024, 4, 28, 11, 10, 12, 0, time.UTC)
	c := New(
		WithLoader[string, int](cnt.load),
		WithExpiration[string, int](time.Minute),
		withClock[string, int](func() time.Time { return now }),
	)
	_, err := c.Get(ctx, "pool")
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = c.Get(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt.calls)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, 2, cnt.calls)
}

func TestNoLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "pool")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
