package snapshot

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoview/pkg/cache"
	"github.com/matzehuels/topoview/pkg/observability"
	"github.com/matzehuels/topoview/pkg/topology"
)

// CachedLoader serves snapshots from a cache for up to TTL before asking
// the wrapped loader again. Cache failures degrade to a direct load.
type CachedLoader struct {
	Loader Loader
	Cache  cache.Cache
	Key    string
	TTL    time.Duration
	Logger *log.Logger
}

// LoadTopology implements Loader.
func (l *CachedLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	hooks := observability.Cache()
	if data, hit, err := l.Cache.Get(ctx, l.Key); err != nil {
		l.logger().Warn("snapshot cache read failed", "err", err)
	} else if hit {
		if snap, err := topology.Unmarshal(data, topology.FormatJSON); err == nil {
			hooks.OnCacheHit(ctx, "snapshot")
			return snap, nil
		}
		_ = l.Cache.Delete(ctx, l.Key)
	}
	hooks.OnCacheMiss(ctx, "snapshot")

	snap, err := l.Loader.LoadTopology(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := topology.Marshal(snap); err == nil {
		if err := l.Cache.Set(ctx, l.Key, data, l.TTL); err != nil {
			l.logger().Warn("snapshot cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, "snapshot", len(data))
		}
	}
	return snap, nil
}

// Close closes the wrapped loader.
func (l *CachedLoader) Close() error { return Close(l.Loader) }

func (l *CachedLoader) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return discard
}
