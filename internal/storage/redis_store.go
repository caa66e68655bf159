package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trend-radar/internal/model"
	"trend-radar/internal/trend"
)

// RedisStore keeps the generated batch slot and a per-period trend history.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a store. ttl bounds the batch slot lifetime; 0 keeps
// the key until overwritten.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

const batchKey = "trends:batch:latest"

func periodZKey(source, period string) string {
	return fmt.Sprintf("trends:source:%s:period:%s", source, period)
}

func itemKey(source, key string) string {
	return fmt.Sprintf("trends:item:%s:%s", source, key)
}

func publishedKey(channel, period string) string {
	return fmt.Sprintf("trends:published:%s:%s", channel, period)
}

// PeriodKey formats a daily or weekly bucket for t.
func PeriodKey(kind string, t time.Time) string {
	t = t.UTC()
	if kind == "weekly" {
		y, w := t.ISOWeek()
		return fmt.Sprintf("weekly:%04d-W%02d", y, w)
	}
	return "daily:" + t.Format("2006-01-02")
}

// Load implements trend.BatchCache.
func (s *RedisStore) Load(ctx context.Context) (trend.CacheState, bool, error) {
	b, err := s.rdb.Get(ctx, batchKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return trend.CacheState{}, false, nil
	}
	if err != nil {
		return trend.CacheState{}, false, err
	}
	var st trend.CacheState
	if err := json.Unmarshal(b, &st); err != nil {
		return trend.CacheState{}, false, fmt.Errorf("storage: decode batch: %w", err)
	}
	return st, true, nil
}

// Store implements trend.BatchCache. The slot is replaced atomically by SET.
func (s *RedisStore) Store(ctx context.Context, st trend.CacheState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, batchKey, b, s.ttl).Err()
}

// RecordTrends stores trends and scores them into the period sorted set.
// A higher score for the same technology replaces the lower one.
func (s *RedisStore) RecordTrends(ctx context.Context, source, period string, trends []model.RichTrend) error {
	pipe := s.rdb.TxPipeline()
	for _, t := range trends {
		k := trend.Key(t.Technology)
		if k == "" {
			continue
		}
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		pipe.Set(ctx, itemKey(source, k), b, 8*24*time.Hour)
		pipe.ZAddGT(ctx, periodZKey(source, period), redis.Z{Score: trend.BaseScore(t.NormalizedTrend), Member: k})
	}
	pipe.Expire(ctx, periodZKey(source, period), 8*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// ScoredTrend pairs a stored trend with its period score.
type ScoredTrend struct {
	Trend model.RichTrend
	Score float64
}

// TopTrends retrieves the top n trends of a period.
func (s *RedisStore) TopTrends(ctx context.Context, source, period string, n int) ([]ScoredTrend, error) {
	if n <= 0 {
		n = trend.DefaultLimit
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, periodZKey(source, period), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ScoredTrend, 0, len(zs))
	for _, z := range zs {
		k, _ := z.Member.(string)
		b, err := s.rdb.Get(ctx, itemKey(source, k)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var t model.RichTrend
		if err := json.Unmarshal(b, &t); err != nil {
			continue
		}
		out = append(out, ScoredTrend{Trend: t, Score: z.Score})
	}
	return out, nil
}

// IsPublished reports whether a report was already written for a channel and period.
func (s *RedisStore) IsPublished(ctx context.Context, channel, period string) (bool, error) {
	n, err := s.rdb.Exists(ctx, publishedKey(channel, period)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPublished marks a report as written for a channel and period.
func (s *RedisStore) MarkPublished(ctx context.Context, channel, period string) error {
	return s.rdb.Set(ctx, publishedKey(channel, period), time.Now().UTC().Format(time.RFC3339), 30*24*time.Hour).Err()
}
