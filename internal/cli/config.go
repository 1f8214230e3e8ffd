package cli

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/server"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/view"
)

// Cache backends accepted in [cache].
const (
	cacheFile  = "file"
	cacheRedis = "redis"
	cacheNone  = "none"
)

// Config is the TOML configuration file.
type Config struct {
	Source  SourceConfig  `toml:"source"`
	Refresh RefreshConfig `toml:"refresh"`
	Canvas  CanvasConfig  `toml:"canvas"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
}

// SourceConfig selects the record store snapshots are loaded from.
type SourceConfig struct {
	Kind       string            `toml:"kind"` // file, http, mongo, sqlite, redis; inferred when empty
	Path       string            `toml:"path"`
	URL        string            `toml:"url"`
	Database   string            `toml:"database"`
	Collection string            `toml:"collection"`
	Table      string            `toml:"table"`
	Key        string            `toml:"key"`
	Headers    map[string]string `toml:"headers"`
}

// RefreshConfig controls how often snapshots are reloaded.
type RefreshConfig struct {
	Interval    Duration `toml:"interval"`
	Timeout     Duration `toml:"timeout"`
	Auto        bool     `toml:"auto"`
	SnapshotTTL Duration `toml:"snapshot_ttl"` // 0 disables snapshot caching
}

// CanvasConfig is the drawing surface.
type CanvasConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Mode   string `toml:"mode"`
}

// ServerConfig configures "serve".
type ServerConfig struct {
	Addr         string  `toml:"addr"`
	StreamFPS    int     `toml:"stream_fps"`
	RefreshRate  float64 `toml:"refresh_rate"` // manual refreshes per second
	RefreshBurst int     `toml:"refresh_burst"`
}

// CacheConfig selects the artifact and snapshot cache.
type CacheConfig struct {
	Backend  string `toml:"backend"` // file, redis, none
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Refresh: RefreshConfig{
			Interval: Duration{snapshot.DefaultInterval},
			Timeout:  Duration{snapshot.DefaultTimeout},
		},
		Canvas: CanvasConfig{
			Width:  pipeline.DefaultWidth,
			Height: pipeline.DefaultHeight,
			Mode:   pipeline.DefaultMode,
		},
		Server: ServerConfig{
			Addr:         server.DefaultAddr,
			StreamFPS:    server.DefaultStreamFPS,
			RefreshRate:  float64(server.DefaultRefreshRate),
			RefreshBurst: server.DefaultRefreshBurst,
		},
		Cache: CacheConfig{Backend: cacheFile},
	}
}

// configDir returns $XDG_CONFIG_HOME/topoview, falling back to ~/.config.
func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func defaultConfigPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// loadConfig reads path over the defaults. A missing file is only an error
// when the user named it explicitly. Unknown keys are returned so the
// caller can warn about them.
func loadConfig(path string, explicit bool) (*Config, []string, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil, nil
		}
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	var unknown []string
	for _, k := range md.Undecoded() {
		unknown = append(unknown, k.String())
	}
	return cfg, unknown, cfg.Validate()
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if err := pipeline.ValidateSize(c.Canvas.Width, c.Canvas.Height); err != nil {
		return errors.Wrap(errors.GetCode(err), err, "[canvas]")
	}
	if _, err := view.ParseMode(c.Canvas.Mode); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMode, err, "[canvas]")
	}
	switch c.Cache.Backend {
	case cacheFile, cacheRedis, cacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "[cache] unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == cacheRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "[cache] redis backend needs redis_url")
	}
	if c.Server.StreamFPS <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "[server] stream_fps must be positive")
	}
	if c.Refresh.Interval.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "[refresh] interval must be positive")
	}
	return nil
}

// Snapshot converts the [source] section.
func (s SourceConfig) Snapshot() snapshot.Source {
	return snapshot.Source{
		Kind:       snapshot.Kind(s.Kind),
		Path:       s.Path,
		URL:        s.URL,
		Database:   s.Database,
		Collection: s.Collection,
		Table:      s.Table,
		Key:        s.Key,
		Headers:    s.Headers,
	}
}

// =============================================================================
// Flag overrides
// =============================================================================

// sourceFlags are the source settings every loading command accepts.
type sourceFlags struct {
	kind       string
	database   string
	collection string
	table      string
	key        string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "source-kind", "", "source kind: file, http, mongo, sqlite, redis (inferred by default)")
	cmd.Flags().StringVar(&f.database, "database", "", "mongo database")
	cmd.Flags().StringVar(&f.collection, "collection", "", "mongo collection")
	cmd.Flags().StringVar(&f.table, "table", "", "sqlite table")
	cmd.Flags().StringVar(&f.key, "key", "", "redis key holding the snapshot")
}

// apply overrides cfg with flags set on cmd. A positional source replaces
// the configured path or URL.
func (f *sourceFlags) apply(cmd *cobra.Command, args []string, cfg *SourceConfig) {
	set := cmd.Flags().Changed
	if set("source-kind") {
		cfg.Kind = f.kind
	}
	if set("database") {
		cfg.Database = f.database
	}
	if set("collection") {
		cfg.Collection = f.collection
	}
	if set("table") {
		cfg.Table = f.table
	}
	if set("key") {
		cfg.Key = f.key
	}
	if len(args) > 0 && args[0] != "" {
		cfg.Path, cfg.URL = "", ""
		if strings.Contains(args[0], "://") {
			cfg.URL = args[0]
		} else {
			cfg.Path = args[0]
		}
	}
}

// canvasFlags are the drawing options shared by render, export and serve.
type canvasFlags struct {
	width  int
	height int
	mode   string
}

func (f *canvasFlags) register(cmd *cobra.Command, withMode bool) {
	cmd.Flags().IntVar(&f.width, "width", pipeline.DefaultWidth, "canvas width in pixels")
	cmd.Flags().IntVar(&f.height, "height", pipeline.DefaultHeight, "canvas height in pixels")
	if withMode {
		cmd.Flags().StringVarP(&f.mode, "mode", "m", pipeline.DefaultMode, "view mode: 2d, 3d")
	}
}

func (f *canvasFlags) apply(cmd *cobra.Command, cfg *CanvasConfig) {
	if cmd.Flags().Changed("width") {
		cfg.Width = f.width
	}
	if cmd.Flags().Changed("height") {
		cfg.Height = f.height
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = f.mode
	}
}
