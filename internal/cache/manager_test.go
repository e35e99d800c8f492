package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthCheckInterval = 0

	m, err := NewManager(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m, mr
}

func TestManager_GetSet(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "key1", "value1", time.Minute))

	val, err := m.Get(ctx, "test", "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)
}

func TestManager_GetMiss(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Get(context.Background(), "test", "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSON(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	type manifest struct {
		ID      string   `json:"id"`
		Aliases []string `json:"aliases"`
	}

	in := manifest{ID: "guardrails/regex_match", Aliases: []string{"regex"}}
	require.NoError(t, m.SetJSON(ctx, "manifest:regex_match", in, time.Minute))

	var out manifest
	require.NoError(t, m.GetJSON(ctx, "hub_manifest", "manifest:regex_match", &out))
	assert.Equal(t, in, out)
}

func TestManager_DefaultTTL(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	// ttl=0 使用配置的默认 TTL
	require.NoError(t, m.Set(ctx, "key1", "value1", 0))

	mr.FastForward(DefaultConfig().DefaultTTL + time.Second)

	_, err := m.Get(ctx, "test", "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Delete(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "key1", "value1", time.Minute))
	require.NoError(t, m.Delete(ctx, "key1"))

	_, err := m.Get(ctx, "test", "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Closed(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Close())

	_, err := m.Get(context.Background(), "test", "key1")
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))

	err = m.Set(context.Background(), "key1", "v", time.Minute)
	assert.Error(t, err)

	// 重复关闭幂等
	assert.NoError(t, m.Close())
}

func TestManager_Ping(t *testing.T) {
	m, _ := newTestManager(t)
	assert.NoError(t, m.Ping(context.Background()))
}
