package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFetchMapsMissingKeyToNotFound(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	value, found, err := client.Fetch(ctx, "mapa:attribution:record")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected miss, got value %q", value)
	}

	if err := client.Set(ctx, "mapa:attribution:record", `{"fbp":"fb.1.1.2"}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, found, err = client.Fetch(ctx, "mapa:attribution:record")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || value != `{"fbp":"fb.1.1.2"}` {
		t.Fatalf("unexpected fetch result found=%v value=%q", found, value)
	}
}

func TestDelRemovesKey(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "mapa:consent:state", "accepted", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Del(ctx, "mapa:consent:state"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, found, _ := client.Fetch(ctx, "mapa:consent:state"); found {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.AttributionKey(); got != "mapa:attribution:record" {
		t.Fatalf("unexpected attribution key %s", got)
	}
	if got := client.ConsentKey(); got != "mapa:consent:state" {
		t.Fatalf("unexpected consent key %s", got)
	}
	if got := client.SessionKey(); got != "mapa:session:id" {
		t.Fatalf("unexpected session key %s", got)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
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

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
