package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	SetFunc    func(ctx context.Context, key string, value any, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	GetFunc    func(ctx context.Context, key string) (string, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if f.SetFunc != nil {
		return f.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	if f.SetNXFunc != nil {
		return f.SetNXFunc(ctx, key, value, expiration)
	}
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, key)
	}
	return "", redis.Nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if f.ExpireFunc != nil {
		return f.ExpireFunc(ctx, key, expiration)
	}
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	if f.DelFunc != nil {
		return f.DelFunc(ctx, keys...)
	}
	return nil
}

func TestRedisAdapter_MethodsReturnErrorsWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	adapter := NewRedisAdapter(client)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := adapter.Set(ctx, "k", "v", 10*time.Second); err == nil {
		t.Fatal("expected Set to return error when redis unavailable")
	}
	if _, err := adapter.SetNX(ctx, "k", "v", 10*time.Second); err == nil {
		t.Fatal("expected SetNX to return error when redis unavailable")
	}
	if _, err := adapter.Get(ctx, "k"); err == nil {
		t.Fatal("expected Get to return error when redis unavailable")
	}
	if err := adapter.Expire(ctx, "k", time.Second); err == nil {
		t.Fatal("expected Expire to return error when redis unavailable")
	}
	if err := adapter.Del(ctx, "k"); err == nil {
		t.Fatal("expected Del to return error when redis unavailable")
	}
}
