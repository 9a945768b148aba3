package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FarePull/internal/domain/models"
	domrepo "FarePull/internal/domain/repository"
	applogger "FarePull/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisHistory keeps one Redis list per stream. Reads scan the list, which Trim keeps bounded.
type RedisHistory struct {
	client *redis.Client
	prefix string
	locks  *streamLocks
	l      *applogger.Logger
}

var _ domrepo.HistoryStore = (*RedisHistory)(nil)

func NewRedisHistory(client *redis.Client, prefix string, l *applogger.Logger) *RedisHistory {
	if prefix == "" {
		prefix = "farepull"
	}
	return &RedisHistory{client: client, prefix: prefix, locks: newStreamLocks(), l: l}
}

func (r *RedisHistory) listKey(stream models.Stream) string {
	return r.prefix + ":history:" + string(stream)
}

func (r *RedisHistory) Append(ctx context.Context, e models.HistoryEntry) error {
	return r.AppendBatch(ctx, []models.HistoryEntry{e})
}

func (r *RedisHistory) AppendBatch(ctx context.Context, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, stream := range streamsOf(entries) {
		lk := r.locks.get(stream)
		lk.Lock()
		defer lk.Unlock()
	}

	pipe := r.client.TxPipeline()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("history encode %s/%s: %w", e.Stream, e.Key, err)
		}
		pipe.RPush(ctx, r.listKey(e.Stream), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	return nil
}

func (r *RedisHistory) RecentEntries(ctx context.Context, stream models.Stream, key string, since time.Time) ([]models.HistoryEntry, error) {
	all, err := r.scan(ctx, stream, key)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *RedisHistory) Load(ctx context.Context, stream models.Stream, key string) ([]models.HistoryEntry, error) {
	return r.scan(ctx, stream, key)
}

func (r *RedisHistory) Latest(ctx context.Context, stream models.Stream, key string) (*models.HistoryEntry, error) {
	all, err := r.scan(ctx, stream, key)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[len(all)-1], nil
}

func (r *RedisHistory) Trim(ctx context.Context, stream models.Stream, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	lk := r.locks.get(stream)
	lk.Lock()
	defer lk.Unlock()
	if err := r.client.LTrim(ctx, r.listKey(stream), int64(-maxEntries), -1).Err(); err != nil {
		return fmt.Errorf("history trim %s: %w", stream, err)
	}
	return nil
}

func (r *RedisHistory) Close() error { return r.client.Close() }

func (r *RedisHistory) scan(ctx context.Context, stream models.Stream, key string) ([]models.HistoryEntry, error) {
	lk := r.locks.get(stream)
	lk.RLock()
	raw, err := r.client.LRange(ctx, r.listKey(stream), 0, -1).Result()
	lk.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("history read %s: %w", stream, err)
	}

	var out []models.HistoryEntry
	for _, s := range raw {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			if r.l != nil {
				r.l.Warn("skipping undecodable history entry", applogger.String("stream", string(stream)), applogger.Error(err))
			}
			continue
		}
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out, nil
}
