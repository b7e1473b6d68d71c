package karma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"termibot/pkg/logger"
)

// RedisStore keeps karma in Redis: totals in a sorted set, display names in
// a hash and reasons in one list per name.
type RedisStore struct {
	log    *logger.Logger
	client redis.UniversalClient
	prefix string
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string // Redis address (host:port)
	Password string // Redis password
	DB       int    // Redis database number
	Prefix   string // Key prefix for namespacing
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, log *logger.Logger, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	s := NewRedisStoreFromClient(log, client, cfg.Prefix)
	s.log.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("prefix", s.prefix))
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(log *logger.Logger, client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "termibot:"
	}
	return &RedisStore{
		log:    log.Named("karma.redis"),
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) scoresKey() string { return s.prefix + "karma:scores" }

func (s *RedisStore) namesKey() string { return s.prefix + "karma:names" }

func (s *RedisStore) reasonsKey(id string) string { return s.prefix + "karma:reasons:" + id }

// Change implements Store.
func (s *RedisStore) Change(ctx context.Context, name string, amount int64) (int64, error) {
	id := normalize(name)

	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, s.namesKey(), id, name)
	incr := pipe.ZIncrBy(ctx, s.scoresKey(), float64(amount), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis karma change: %w", err)
	}

	return int64(math.Round(incr.Val())), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, name string) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, s.scoresKey(), normalize(name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis karma get: %w", err)
	}
	return int64(math.Round(score)), true, nil
}

// Top implements Store.
func (s *RedisStore) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	scores, err := s.client.ZRevRangeWithScores(ctx, s.scoresKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis karma top: %w", err)
	}
	if len(scores) == 0 {
		return []Entry{}, nil
	}

	ids := make([]string, 0, len(scores))
	for _, z := range scores {
		ids = append(ids, fmt.Sprint(z.Member))
	}
	names, err := s.client.HMGet(ctx, s.namesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis karma names: %w", err)
	}

	out := make([]Entry, 0, len(scores))
	for i, z := range scores {
		display := ids[i]
		if name, ok := names[i].(string); ok && name != "" {
			display = name
		}
		out = append(out, Entry{Name: display, Karma: int64(math.Round(z.Score))})
	}
	return out, nil
}

// AddReason implements Store.
func (s *RedisStore) AddReason(ctx context.Context, name string, change int64, reason string) error {
	data, err := json.Marshal(Reason{Change: change, Text: reason})
	if err != nil {
		return fmt.Errorf("marshaling reason: %w", err)
	}
	if err := s.client.RPush(ctx, s.reasonsKey(normalize(name)), data).Err(); err != nil {
		return fmt.Errorf("redis karma reason: %w", err)
	}
	return nil
}

// Reasons implements Store.
func (s *RedisStore) Reasons(ctx context.Context, name string) ([]Reason, error) {
	raw, err := s.client.LRange(ctx, s.reasonsKey(normalize(name)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis karma reasons: %w", err)
	}

	out := make([]Reason, 0, len(raw))
	for _, item := range raw {
		var r Reason
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			s.log.Warn("Skipping malformed karma reason", zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
