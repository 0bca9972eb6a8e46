package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestClient_PublishSubscribe(t *testing.T) {
	_, client := setupTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := client.Subscribe(ctx, "changes")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "changes", []byte(`{"kind":"ledger"}`)))

	select {
	case msg := <-ch:
		assert.Equal(t, `{"kind":"ledger"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("未收到订阅消息")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "ctx 取消后通道应关闭")
	case <-time.After(2 * time.Second):
		t.Fatal("ctx 取消后通道未关闭")
	}
}

func TestClient_CheckRateLimit(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := client.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "第 %d 次请求应放行", i+1)
	}

	allowed, err := client.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "超过上限后应拒绝")
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(&config.RedisConfig{Addr: addr}, zap.NewNop())
	assert.Error(t, err)
}
