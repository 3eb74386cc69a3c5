// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultTestRedisAddr is used when REDIS_TEST_ADDR is unset or empty.
const DefaultTestRedisAddr = "localhost:6379"

// testRedisDB keeps test keys out of the default database.
const testRedisDB = 1

// GetTestRedisOptions returns options for a real Redis under test,
// addressed by REDIS_TEST_ADDR.
func GetTestRedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = DefaultTestRedisAddr
	}
	return &redis.Options{Addr: addr, DB: testRedisDB}
}

// GetTestRedisClient builds a client from GetTestRedisOptions. It does not
// connect until first use.
func GetTestRedisClient() *redis.Client {
	return redis.NewClient(GetTestRedisOptions())
}

// NewMiniRedis starts an in-process Redis and a client bound to it. Both are
// closed when the test ends.
func NewMiniRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}
