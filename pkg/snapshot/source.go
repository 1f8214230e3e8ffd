package snapshot

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/matzehuels/topoview/pkg/errors"
)

// Kind names a loader implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindHTTP   Kind = "http"
	KindMongo  Kind = "mongo"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Source describes where snapshots come from. Kind may be left empty and
// is then inferred from URL's scheme or Path's extension.
type Source struct {
	Kind       Kind
	Path       string
	URL        string
	Database   string
	Collection string
	Table      string
	Key        string
	Headers    map[string]string
}

// ResolveKind returns the explicit kind or infers one.
func (s Source) ResolveKind() (Kind, error) {
	if s.Kind != "" {
		switch s.Kind {
		case KindFile, KindHTTP, KindMongo, KindSQLite, KindRedis:
			return s.Kind, nil
		}
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown source kind %q", s.Kind)
	}
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidURL, err, "parse source url")
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return KindHTTP, nil
		case "mongodb", "mongodb+srv":
			return KindMongo, nil
		case "redis", "rediss":
			return KindRedis, nil
		}
		return "", errors.New(errors.ErrCodeInvalidURL, "unsupported source scheme %q", u.Scheme)
	}
	if s.Path == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no source configured")
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite, nil
	}
	return KindFile, nil
}

// String describes the source for logs.
func (s Source) String() string {
	k, _ := s.ResolveKind()
	switch k {
	case KindMongo:
		return "mongo:" + s.Database + "." + s.Collection
	case KindRedis:
		key := s.Key
		if key == "" {
			key = DefaultRedisKey
		}
		return "redis:" + key
	case KindHTTP:
		return s.URL
	default:
		return s.Path
	}
}

// Open builds the loader for s, connecting where the backend needs it.
// Release it with [Close].
func Open(ctx context.Context, s Source) (Loader, error) {
	kind, err := s.ResolveKind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindFile:
		if err := errors.ValidatePath(s.Path); err != nil {
			return nil, err
		}
		return FileLoader{Path: s.Path}, nil
	case KindHTTP:
		if err := errors.ValidateURL(s.URL); err != nil {
			return nil, err
		}
		h := make(http.Header, len(s.Headers))
		for k, v := range s.Headers {
			h.Set(k, v)
		}
		return &HTTPLoader{URL: s.URL, Header: h}, nil
	case KindMongo:
		if s.Database == "" || s.Collection == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "mongo source needs database and collection")
		}
		l, err := OpenMongoLoader(ctx, s.URL, s.Database, s.Collection)
		if err != nil {
			return nil, err
		}
		return l, nil
	case KindSQLite:
		if err := errors.ValidatePath(s.Path); err != nil {
			return nil, err
		}
		l, err := OpenSQLite(s.Path, s.Table)
		if err != nil {
			return nil, err
		}
		return l, nil
	case KindRedis:
		l, err := OpenRedisLoader(ctx, s.URL, s.Key)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "source kind %q", kind)
}

// OpenStore opens s for writing. Only SQLite and Redis sources are
// writable; the others are read by topoview but owned by the record store.
func OpenStore(ctx context.Context, s Source) (Store, error) {
	kind, err := s.ResolveKind()
	if err != nil {
		return nil, err
	}
	if kind != KindSQLite && kind != KindRedis {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s sources are read-only", kind)
	}
	l, err := Open(ctx, s)
	if err != nil {
		return nil, err
	}
	st, ok := l.(Store)
	if !ok {
		_ = Close(l)
		return nil, errors.New(errors.ErrCodeUnsupported, "%s sources are read-only", kind)
	}
	return st, nil
}
