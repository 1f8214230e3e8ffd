package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/matzehuels/topoview/pkg/cache"
	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
)

const doc = `{"nodes":[
 {"id":"db","name":"orders-db","category":"database","status":"online","connections":["api"],
  "metrics":{"cpu":12,"disk":80},"details":{"engine":"postgres","replicas":2}},
 {"id":"api","name":"api","category":"server","status":"warning"}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileLoader(t *testing.T) {
	path := writeFile(t, "topology.json", doc)
	s, err := FileLoader{Path: path}.LoadTopology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, path, s.Source)

	_, err = FileLoader{Path: filepath.Join(t.TempDir(), "missing.json")}.LoadTopology(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestHTTPLoaderRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	l := &HTTPLoader{URL: srv.URL, Client: srv.Client(), Delay: time.Millisecond}
	s, err := l.LoadTopology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, srv.URL, s.Source)
	v, ok := s.Nodes[0].Details.Get("replicas")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestHTTPLoaderDefaultBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	// The zero loader uses the package backoff; a 404 is not retried.
	_, err := (&HTTPLoader{URL: srv.URL}).LoadTopology(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	s, err := (&HTTPLoader{URL: srv.URL}).LoadTopology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestHTTPLoaderRejectsInvalidDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nodes":[{"id":"a"},{"id":"a"}]}`))
	}))
	defer srv.Close()

	_, err := (&HTTPLoader{URL: srv.URL, Delay: time.Millisecond}).LoadTopology(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidSnapshot))
}

func TestCachedLoader(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	var calls atomic.Int32
	inner := LoaderFunc(func(context.Context) (*topology.Snapshot, error) {
		calls.Add(1)
		return topology.Unmarshal([]byte(doc), topology.FormatJSON)
	})
	l := &CachedLoader{Loader: inner, Cache: fc, Key: cache.NewDefaultKeyer().SnapshotKey("test"), TTL: time.Hour}

	first, err := l.LoadTopology(context.Background())
	require.NoError(t, err)
	second, err := l.LoadTopology(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.Hash(), second.Hash())
	assert.NoError(t, l.Close())
}

func TestSQLiteLoaderRoundTrip(t *testing.T) {
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "topology.db"), "")
	require.NoError(t, err)
	defer l.Close()

	want, err := topology.Unmarshal([]byte(doc), topology.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, l.Save(context.Background(), want))

	got, err := l.LoadTopology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), got.Hash())
	assert.Equal(t, []string{"db", "api"}, []string{got.Nodes[0].ID, got.Nodes[1].ID})
	assert.Equal(t, "engine", got.Nodes[0].Details[0].Key)
	assert.Nil(t, got.Nodes[1].Metrics.CPU)
}

func TestSQLiteLoaderEmptyTable(t *testing.T) {
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "empty.db"), "hosts")
	require.NoError(t, err)
	defer l.Close()

	s, err := l.LoadTopology(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestOpenSQLiteRejectsBadTable(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), "nodes; DROP TABLE x")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestNodeFromBSON(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "gateway"},
		{Key: "category", Value: "service"},
		{Key: "status", Value: "error"},
		{Key: "connections", Value: bson.A{"db"}},
		{Key: "metrics", Value: bson.D{{Key: "cpu", Value: int32(55)}, {Key: "temperature", Value: -4.5}}},
		{Key: "details", Value: bson.D{
			{Key: "zone", Value: "b"},
			{Key: "pods", Value: int32(3)},
			{Key: "tls", Value: true},
			{Key: "labels", Value: bson.D{{Key: "team", Value: "core"}}},
		}},
	})
	require.NoError(t, err)

	n, err := nodeFromBSON(raw)
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), n.ID)
	assert.Equal(t, topology.CategoryService, n.Category)
	assert.Equal(t, []string{"db"}, n.Connections)
	require.NotNil(t, n.Metrics.CPU)
	assert.Equal(t, 55.0, *n.Metrics.CPU)
	assert.Equal(t, -4.5, *n.Metrics.Temperature)
	assert.Nil(t, n.Metrics.Battery)

	require.Len(t, n.Details, 4)
	assert.Equal(t, "zone", n.Details[0].Key)
	assert.Equal(t, int64(3), n.Details[1].Value)
	assert.Equal(t, true, n.Details[2].Value)
	assert.Equal(t, `{"team":"core"}`, n.Details[3].Value)
}

func TestNodeFromBSONPrefersID(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: "internal"}, {Key: "id", Value: "db-1"}})
	require.NoError(t, err)
	n, err := nodeFromBSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "db-1", n.ID)
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		src  Source
		want Kind
		err  bool
	}{
		{Source{Path: "topology.yaml"}, KindFile, false},
		{Source{Path: "records.sqlite"}, KindSQLite, false},
		{Source{Path: "records.db"}, KindSQLite, false},
		{Source{URL: "https://records.local/api/topology"}, KindHTTP, false},
		{Source{URL: "mongodb://localhost:27017"}, KindMongo, false},
		{Source{URL: "redis://localhost:6379/0"}, KindRedis, false},
		{Source{Kind: KindFile, URL: "https://ignored"}, KindFile, false},
		{Source{URL: "ftp://x"}, "", true},
		{Source{Kind: "carrier-pigeon"}, "", true},
		{Source{}, "", true},
	}
	for _, tt := range tests {
		got, err := tt.src.ResolveKind()
		if tt.err {
			assert.Error(t, err, "%+v", tt.src)
			continue
		}
		require.NoError(t, err, "%+v", tt.src)
		assert.Equal(t, tt.want, got, "%+v", tt.src)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	l, err := Open(ctx, Source{Path: writeFile(t, "t.json", doc)})
	require.NoError(t, err)
	assert.IsType(t, FileLoader{}, l)
	assert.NoError(t, Close(l))

	l, err = Open(ctx, Source{URL: "https://records.local/api", Headers: map[string]string{"X-Token": "t"}})
	require.NoError(t, err)
	hl := l.(*HTTPLoader)
	assert.Equal(t, "t", hl.Header.Get("X-Token"))

	_, err = Open(ctx, Source{URL: "mongodb://localhost"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	l, err = Open(ctx, Source{Path: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLoader{}, l)
	assert.NoError(t, Close(l))
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "mongo:ops.nodes", Source{URL: "mongodb://x", Database: "ops", Collection: "nodes"}.String())
	assert.Equal(t, "redis:"+DefaultRedisKey, Source{URL: "redis://x"}.String())
	assert.Equal(t, "t.json", Source{Path: "t.json"}.String())
}

func TestRedisLoaderUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewRedisLoader(client, "site:a")
	defer client.Close()

	_, err := l.LoadTopology(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeSourceUnavailable), "err = %v", err)
	err = l.Save(context.Background(), snap("a"))
	assert.True(t, errors.Is(err, errors.ErrCodeSourceUnavailable), "err = %v", err)
	assert.NoError(t, l.Close(), "a borrowed client is not closed by the loader")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := OpenStore(ctx, Source{Path: filepath.Join(t.TempDir(), "seed.sqlite")})
	require.NoError(t, err)
	defer Close(st)
	require.NoError(t, st.Save(ctx, snap("a", "b")))
	got, err := st.LoadTopology(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	for _, src := range []Source{
		{Path: writeFile(t, "t.json", doc)},
		{URL: "https://records.local/api"},
		{URL: "mongodb://localhost", Database: "ops", Collection: "nodes"},
	} {
		_, err := OpenStore(ctx, src)
		assert.True(t, errors.Is(err, errors.ErrCodeUnsupported), "%s: err = %v", src, err)
	}
}
