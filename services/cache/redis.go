// Package cachesvc caches feedback session statistics.
package cachesvc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/teamfeed/teamfeed/core/feedback"
)

const (
	keyPrefix = "teamfeed:stats:"
	scanCount = 100
)

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ feedback.StatsCache = (*redisStatsCache)(nil)

// NewRedisClient connects to the redis server at url (redis://[user:pwd@]host:port/db).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) feedback.StatsCache {
	return &redisStatsCache{client: client, ttl: ttl}
}

func statsKey(courseID, sessionName string) string {
	return keyPrefix + courseID + ":" + sessionName
}

func (c *redisStatsCache) Get(ctx context.Context, courseID, sessionName string) (feedback.Stats, bool, error) {
	data, err := c.client.Get(ctx, statsKey(courseID, sessionName)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return feedback.Stats{}, false, nil
		}
		return feedback.Stats{}, false, errors.Wrap(err, "getting cached stats")
	}

	var st feedback.Stats
	if err = json.Unmarshal(data, &st); err != nil {
		return feedback.Stats{}, false, errors.Wrap(err, "decoding cached stats")
	}
	return st, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, courseID, sessionName string, st feedback.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding stats")
	}
	if err = c.client.Set(ctx, statsKey(courseID, sessionName), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "caching stats")
	}
	return nil
}

func (c *redisStatsCache) Invalidate(ctx context.Context, courseID, sessionName string) error {
	if err := c.client.Del(ctx, statsKey(courseID, sessionName)).Err(); err != nil {
		return errors.Wrap(err, "invalidating cached stats")
	}
	return nil
}

func (c *redisStatsCache) InvalidateCourse(ctx context.Context, courseID string) error {
	pattern := keyPrefix + globEscaper.Replace(courseID) + ":*"
	iter := c.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning cached stats")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "invalidating cached course stats")
	}
	return nil
}

type noopStatsCache struct{}

// NewNoopStatsCache returns a cache that stores nothing; used when no redis server is configured.
func NewNoopStatsCache() feedback.StatsCache {
	return noopStatsCache{}
}

func (noopStatsCache) Get(context.Context, string, string) (feedback.Stats, bool, error) {
	return feedback.Stats{}, false, nil
}

func (noopStatsCache) Set(context.Context, string, string, feedback.Stats) error { return nil }

func (noopStatsCache) Invalidate(context.Context, string, string) error { return nil }

func (noopStatsCache) InvalidateCourse(context.Context, string) error { return nil }
