package karma

import (
	"context"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"termibot/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	return log
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), newTestLogger(t), RedisConfig{Addr: mr.Addr(), Prefix: "test:"})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func storeBackends(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStoreChangeIsCaseInsensitive(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if total, err := store.Change(ctx, "Sunnydays", 1); err != nil || total != 1 {
				t.Fatalf("Change() = %d, %v", total, err)
			}
			if total, err := store.Change(ctx, "sUnnydays", 1); err != nil || total != 2 {
				t.Fatalf("Change() = %d, %v", total, err)
			}

			karma, found, err := store.Get(ctx, "sunnydays")
			if err != nil || !found || karma != 2 {
				t.Fatalf("Get() = %d, %v, %v", karma, found, err)
			}
		})
	}
}

func TestStoreNegativeKarma(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Change(ctx, "rAinydays", -1); err != nil {
				t.Fatal(err)
			}
			karma, found, err := store.Get(ctx, "Rainydays")
			if err != nil || !found || karma != -1 {
				t.Fatalf("Get() = %d, %v, %v", karma, found, err)
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			karma, found, err := store.Get(context.Background(), "nobody")
			if err != nil || found || karma != 0 {
				t.Fatalf("Get() = %d, %v, %v", karma, found, err)
			}
		})
	}
}

func TestStoreTop(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, c := range []struct {
				name   string
				amount int64
			}{
				{"SunnyDays", 1}, {"sunnydays", 1}, {"rainydays", -1}, {"rust", 3},
			} {
				if _, err := store.Change(ctx, c.name, c.amount); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.Top(ctx, 2)
			if err != nil {
				t.Fatalf("Top() error = %v", err)
			}
			want := []Entry{{Name: "rust", Karma: 3}, {Name: "SunnyDays", Karma: 2}}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Top(2) = %+v, want %+v", got, want)
			}

			all, err := store.Top(ctx, 10)
			if err != nil || len(all) != 3 {
				t.Fatalf("Top(10) = %+v, %v", all, err)
			}
			if all[2].Name != "rainydays" || all[2].Karma != -1 {
				t.Fatalf("last entry = %+v", all[2])
			}

			none, err := store.Top(ctx, 0)
			if err != nil || len(none) != 0 {
				t.Fatalf("Top(0) = %+v, %v", none, err)
			}
		})
	}
}

func TestStoreReasons(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.AddReason(ctx, "rainydays", -1, "for being wet"); err != nil {
				t.Fatal(err)
			}
			if err := store.AddReason(ctx, "RainyDays", 1, "because plants"); err != nil {
				t.Fatal(err)
			}

			got, err := store.Reasons(ctx, "rainydays")
			if err != nil {
				t.Fatalf("Reasons() error = %v", err)
			}
			want := []Reason{{Change: -1, Text: "for being wet"}, {Change: 1, Text: "because plants"}}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Reasons() = %+v, want %+v", got, want)
			}

			empty, err := store.Reasons(ctx, "nobody")
			if err != nil || len(empty) != 0 {
				t.Fatalf("Reasons(nobody) = %+v, %v", empty, err)
			}
		})
	}
}

func TestRedisStoreKeys(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.Change(ctx, "Rust", 2); err != nil {
		t.Fatal(err)
	}
	if err := store.AddReason(ctx, "Rust", 1, "for safety"); err != nil {
		t.Fatal(err)
	}

	score, err := mr.ZScore("test:karma:scores", "rust")
	if err != nil || score != 2 {
		t.Fatalf("ZScore = %v, %v", score, err)
	}
	if got := mr.HGet("test:karma:names", "rust"); got != "Rust" {
		t.Fatalf("display name = %q", got)
	}
	items, err := mr.List("test:karma:reasons:rust")
	if err != nil || len(items) != 1 {
		t.Fatalf("reasons list = %v, %v", items, err)
	}
}

func TestRedisStoreSkipsMalformedReasons(t *testing.T) {
	store, mr := newRedisStore(t)
	if _, err := mr.RPush("test:karma:reasons:rust", "not json", `{"change":1,"text":"for speed"}`); err != nil {
		t.Fatal(err)
	}

	got, err := store.Reasons(context.Background(), "rust")
	if err != nil {
		t.Fatalf("Reasons() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "for speed" {
		t.Fatalf("Reasons() = %+v", got)
	}
}

func TestRedisStoreDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(newTestLogger(t), client, "")
	t.Cleanup(func() { _ = store.Close() })

	if _, err := store.Change(context.Background(), "go", 1); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("termibot:karma:scores") {
		t.Fatal("expected default prefix termibot:")
	}
}

func TestNewStore(t *testing.T) {
	log := newTestLogger(t)

	store, err := NewStore(context.Background(), log, RedisConfig{})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("NewStore() = %T, want *MemoryStore", store)
	}

	mr := miniredis.RunT(t)
	store, err = NewStore(context.Background(), log, RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()
	if _, ok := store.(*RedisStore); !ok {
		t.Fatalf("NewStore() = %T, want *RedisStore", store)
	}

	addr := mr.Addr()
	mr.Close()
	if _, err := NewStore(context.Background(), log, RedisConfig{Addr: addr}); err == nil {
		t.Fatal("expected connection error after miniredis shut down")
	}
}
