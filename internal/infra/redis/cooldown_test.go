package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("LABS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test. Set LABS_TEST_REDIS_URL to run.")
	}
	c, err := NewClient(Config{URL: url, Prefix: "labs-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestReserve(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, _, err := c.Reserve(ctx, "0xabc", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first reserve should succeed: ok=%v err=%v", ok, err)
	}

	ok, left, err := c.Reserve(ctx, "0xabc", time.Minute)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if ok {
		t.Fatal("second reserve should be refused")
	}
	if left <= 0 || left > time.Minute {
		t.Errorf("unexpected retry-after %s", left)
	}

	if err := c.Release(ctx, "0xabc"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, _, err = c.Reserve(ctx, "0xabc", time.Minute)
	if err != nil || !ok {
		t.Errorf("reserve after release should succeed: ok=%v err=%v", ok, err)
	}
}

func TestReserve_Expires(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if ok, _, _ := c.Reserve(ctx, "short", 50*time.Millisecond); !ok {
		t.Fatal("first reserve should succeed")
	}
	time.Sleep(120 * time.Millisecond)
	if ok, _, _ := c.Reserve(ctx, "short", 50*time.Millisecond); !ok {
		t.Error("reserve should succeed after ttl")
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Error("expected error for invalid url")
	}
}
