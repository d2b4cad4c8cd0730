package resultcache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

func TestKey(t *testing.T) {
	t.Parallel()

	a := Key("audio", []byte("clip"))
	assert.Equal(t, a, Key("audio", []byte("clip")))
	assert.NotEqual(t, a, Key("image", []byte("clip")))
	assert.NotEqual(t, a, Key("audio", []byte("clip2")))
	assert.Len(t, a, len("audio:")+64)
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	c := NewMemory(time.Minute)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`{"analysis_id":"x"}`)
	require.NoError(t, c.Set(ctx, "k", value))
	value[0] = 'X'

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"analysis_id":"x"}`, string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	c := NewMemory(20 * time.Millisecond)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	c, err := New(&conf.CacheSettings{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, c)

	c, err = New(&conf.CacheSettings{Enabled: true, Backend: conf.CacheBackendMemory, TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	require.NoError(t, c.Close())

	_, err = New(&conf.CacheSettings{Enabled: true, Backend: "memcached"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestDisabledAlwaysMisses(t *testing.T) {
	t.Parallel()
	var c Disabled

	require.NoError(t, c.Set(t.Context(), "k", []byte("v")))
	_, ok, err := c.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	t.Parallel()

	_, err := NewRedis(conf.RedisSettings{Addr: "127.0.0.1:1"}, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCache))
}

// TestRedisIntegration runs against a throwaway redis container. It needs
// Docker and is enabled with CARDOC_REDIS_IT=1.
func TestRedisIntegration(t *testing.T) {
	if testing.Short() || os.Getenv("CARDOC_REDIS_IT") == "" {
		t.Skip("set CARDOC_REDIS_IT=1 to run the redis integration test")
	}
	ctx := t.Context()

	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	c, err := NewRedis(conf.RedisSettings{Addr: addr}, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	key := Key("audio", []byte("clip"))
	require.NoError(t, c.Set(ctx, key, []byte("payload")))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
