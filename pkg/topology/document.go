package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/topoview/pkg/errors"
)

// Format is a snapshot document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// document is the wrapped form {"nodes": [...]}.
type document struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported snapshot file %q (want .json, .yaml or .yml)", path)
	}
}

// ReadFile reads and validates a snapshot document from disk.
func ReadFile(path string) (*Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format, WithSource(path))
}

// Read decodes and validates a snapshot document.
func Read(r io.Reader, format Format, opts ...Option) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Unmarshal(data, format, opts...)
}

// Unmarshal decodes and validates a snapshot document held in memory.
func Unmarshal(data []byte, format Format, opts ...Option) (*Snapshot, error) {
	var (
		nodes []Node
		err   error
	)
	switch format {
	case FormatJSON:
		nodes, err = decodeJSON(data)
	case FormatYAML:
		nodes, err = decodeYAML(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode %s", format)
	}
	if err := Validate(nodes); err != nil {
		return nil, err
	}
	return New(nodes, opts...), nil
}

func decodeJSON(data []byte) ([]Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var nodes []Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, err
		}
		return nodes, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Nodes, nil
}

func decodeYAML(data []byte) ([]Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	body := root.Content[0]
	if body.Kind == yaml.SequenceNode {
		var nodes []Node
		if err := body.Decode(&nodes); err != nil {
			return nil, err
		}
		return nodes, nil
	}
	var doc document
	if err := body.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Nodes, nil
}

// Marshal encodes a snapshot as an indented JSON document, positions included.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a snapshot as an indented JSON document.
func Write(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
