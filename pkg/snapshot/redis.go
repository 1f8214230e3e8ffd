package snapshot

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
)

// DefaultRedisKey is the key RedisLoader reads when none is configured.
const DefaultRedisKey = "topoview:snapshot"

// RedisLoader reads a JSON snapshot document stored under one key. The
// record store's publisher overwrites the key; each load sees the whole
// document or the previous one, never a mix.
type RedisLoader struct {
	// TTL is the expiry Save sets on the key; zero keeps it forever.
	TTL time.Duration

	client redis.UniversalClient
	key    string
	owned  bool
}

// NewRedisLoader reads key through an existing client. Close leaves the
// client open.
func NewRedisLoader(client redis.UniversalClient, key string) *RedisLoader {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisLoader{client: client, key: key}
}

// OpenRedisLoader connects to the server at url.
func OpenRedisLoader(ctx context.Context, url, key string) (*RedisLoader, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "ping redis")
	}
	l := NewRedisLoader(client, key)
	l.owned = true
	return l, nil
}

// LoadTopology implements Loader.
func (l *RedisLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	data, err := l.client.Get(ctx, l.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.New(errors.ErrCodeNotFound, "redis key %q does not exist", l.key)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "get %s", l.key)
	}
	return topology.Unmarshal(data, topology.FormatJSON, topology.WithSource("redis:"+l.key))
}

// Save writes snap under the loader's key, expiring after TTL when set.
func (l *RedisLoader) Save(ctx context.Context, snap *topology.Snapshot) error {
	data, err := topology.Marshal(snap)
	if err != nil {
		return err
	}
	if err := l.client.Set(ctx, l.key, data, l.TTL).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeSourceUnavailable, err, "set %s", l.key)
	}
	return nil
}

// Close closes the client if the loader opened it.
func (l *RedisLoader) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
