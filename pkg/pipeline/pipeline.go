// Package pipeline runs the one-shot load → layout → render pipeline.
//
// The CLI's render and export commands and the server's export endpoints
// share this code, so a snapshot looks the same no matter which entry
// point produced the file.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: ask a [snapshot.Loader] for one snapshot
//  2. Layout: place the nodes on the category circle for the canvas size
//  3. Render: produce artifacts (PNG frame, SVG, DOT, JSON)
//
// Rendered artifacts are cached under a key derived from the snapshot's
// content hash and every option that changes the output.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, loader, pipeline.Options{
//	    Mode:    "3d",
//	    Formats: []string{"png", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
//
// Run individual stages:
//
//	snap, err := runner.Load(ctx, loader)
//	laid := pipeline.GenerateLayout(snap, opts)
//	artifacts, err := runner.Render(ctx, laid, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoview/pkg/cache"
	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 800

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = 600

	// MaxDimension caps either canvas side.
	MaxDimension = 8192
)

// DefaultMode is the default view mode.
const DefaultMode = string(view.Mode2D)

// Format constants for output formats.
const (
	FormatPNG  = "png"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG:  true,
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Render options
	Mode     string   `json:"mode,omitempty"`
	Formats  []string `json:"formats,omitempty"`
	Selected string   `json:"selected,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // detail rows in SVG/DOT labels
	Refresh  bool     `json:"refresh,omitempty"`  // bypass the artifact cache

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the laid-out snapshot.
	Snapshot *topology.Snapshot

	// SnapshotHash is the content hash used in artifact cache keys.
	SnapshotHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	Dangling   int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, svg, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSize checks the canvas dimensions.
func ValidateSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New(errors.ErrCodeCanvasUnavailable, "canvas has no drawable size (%dx%d)", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return errors.New(errors.ErrCodeInvalidInput, "canvas %dx%d exceeds %d pixels per side", width, height, MaxDimension)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return ValidateSize(o.Width, o.Height)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPNG}
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ValidateForRender validates and sets defaults for rendering. The mode is
// normalized to "2d" or "3d".
func (o *Options) ValidateForRender() error {
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	if err := ValidateSize(o.Width, o.Height); err != nil {
		return err
	}
	m, err := view.ParseMode(o.Mode)
	if err != nil {
		return err
	}
	o.Mode = string(m)
	return ValidateFormats(o.Formats)
}

// IsPerspective reports whether the PNG frame uses the pseudo-3D renderer.
func (o *Options) IsPerspective() bool {
	return o.Mode == string(view.Mode3D)
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format: format,
		Width:  o.Width,
		Height: o.Height,
	}
	// Mode and selection only affect the raster frame.
	if format == FormatPNG {
		k.Mode = o.Mode
		k.Selected = o.Selected
	}
	if o.Detailed && (format == FormatSVG || format == FormatDOT) {
		k.Format += "+detailed"
	}
	return k
}

// codeOr returns err's code, or fallback for errors without one.
func codeOr(err error, fallback errors.Code) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return fallback
}
