package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	goredis "github.com/redis/go-redis/v9"
)

// Config contains connection details for the Redis embedding cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Storage keeps embeddings in Redis as little-endian float64 blobs under
// <prefix><model>:<xxhash of text>.
type Storage struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewStorage connects and pings the server.
func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Storage{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (s *Storage) Get(ctx context.Context, model string, texts []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = Key(s.prefix, model, t)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("redis key %s: %w", keys[i], err)
		}
		out[texts[i]] = vec
	}
	return out, nil
}

func (s *Storage) Put(ctx context.Context, model string, vectors map[string][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for t, v := range vectors {
		pipe.Set(ctx, Key(s.prefix, model, t), Encode(v), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear deletes every key under the configured prefix.
func (s *Storage) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() error { return s.client.Close() }

// Key builds the cache key of text for model.
func Key(prefix, model, text string) string {
	return prefix + model + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func Encode(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

func Decode(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return v, nil
}
