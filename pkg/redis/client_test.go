package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floorops-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	require.Len(t, mock.expireCalls, 1)
	assert.Equal(t, "fo:rate_limit:test-scope", mock.expireCalls[0].key)
	assert.Equal(t, time.Second, mock.expireCalls[0].ttl)

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), count)
	assert.Len(t, mock.expireCalls, 1, "expire should only be set on the first hit")

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "owner-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", value)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestCompareAndDeleteOnlyRemovesOwnValue(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	_, err := client.SetNX(ctx, "fo:lock:cron", "owner-1", time.Minute)
	require.NoError(t, err)

	removed, err := client.CompareAndDelete(ctx, "fo:lock:cron", "owner-2")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = client.CompareAndDelete(ctx, "fo:lock:cron", "owner-1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = client.Get(ctx, "fo:lock:cron")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestPublishRecordsChannel(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	channel := client.RealtimeChannel("tenant-a")

	receivers, err := client.Publish(context.Background(), channel, []byte(`{"type":"order.updated"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), receivers)
	require.Len(t, mock.published, 1)
	assert.Equal(t, "fo:realtime:tenant-a", mock.published[0].channel)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	_, err := client.Publish(context.Background(), "c", nil)
	assert.Error(t, err)
	_, _, err = client.SubscribePattern(context.Background(), "p")
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
	_, _, err = client.FixedWindowAllow(context.Background(), "s", 1, time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestOptionsPrefersURL(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:secret@cache:6380/2", Address: "ignored:6379", PoolSize: 20})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = options(config.RedisConfig{})
	assert.Error(t, err)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "fo:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "fo:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "fo:lock:scheduled-fire", client.LockKey("scheduled-fire"))
	assert.Equal(t, "fo:realtime:abc", client.RealtimeChannel("abc"))
	assert.Equal(t, "fo:realtime:*", client.RealtimePattern())
	assert.Equal(t, "fo:idempotency:scope", client.IdempotencyKey("scope", ""), "empty parts are skipped")
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
	published   []publishCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

type publishCall struct {
	channel string
	payload any
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// Eval emulates the two scripts the client ships.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected arity"))
	}
	switch script {
	case fixedWindowIncr:
		m.incr[keys[0]]++
		n := m.incr[keys[0]]
		if n == 1 {
			ms, _ := args[0].(int64)
			m.expireCalls = append(m.expireCalls, expireCall{key: keys[0], ttl: time.Duration(ms) * time.Millisecond})
		}
		return redis.NewCmdResult(n, nil)
	case compareAndDelete:
		if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
			delete(m.data, keys[0])
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, publishCall{channel: channel, payload: message})
	return redis.NewIntResult(1, nil)
}
