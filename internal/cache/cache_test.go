package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

// testRedis returns a client against a local server, skipping when none is
// reachable.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestNilClientDegradesGracefully(t *testing.T) {
	s := New(nil, testLogger())

	var out map[string]int
	assert.False(t, s.GetJSON(context.Background(), "anything", &out))
	// Must not panic
	s.SetJSON("anything", map[string]int{"a": 1}, time.Minute)
	s.Delete(context.Background(), "anything")
}

func TestRoundTrip(t *testing.T) {
	client := testRedis(t)
	defer client.Close()
	s := New(client, testLogger())

	key := "fpl:test:roundtrip"
	s.Delete(context.Background(), key)

	type payload struct {
		ID   int     `json:"id"`
		Name string  `json:"name"`
		XP   float64 `json:"xp"`
	}
	in := payload{ID: 7, Name: "Saka", XP: 6.2}
	s.SetJSON(key, in, time.Minute)

	// Writes are async; poll briefly
	var out payload
	require.Eventually(t, func() bool {
		return s.GetJSON(context.Background(), key, &out)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, in, out)

	s.Delete(context.Background(), key)
	assert.False(t, s.GetJSON(context.Background(), key, &out))
}
