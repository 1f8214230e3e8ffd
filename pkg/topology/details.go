package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Detail is one human-readable key/value row of a node.
// Value is a string, int64, float64, bool or nil.
type Detail struct {
	Key   string
	Value any
}

// String formats the value the way the inspector shows it.
func (d Detail) String() string {
	switch v := d.Value.(type) {
	case nil:
		return "—"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Details is an ordered mapping of keys to scalar values.
// Its shape differs per category, so it stays untyped.
type Details []Detail

// Get returns the value stored under key.
func (d Details) Get(key string) (any, bool) {
	for _, kv := range d {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the details as a JSON object in row order.
func (d Details) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("detail %q: %w", kv.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order.
func (d *Details) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details: expected object, got %v", tok)
	}

	out := Details{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("details: expected key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("details %q: %w", key, err)
		}
		out = append(out, Detail{Key: key, Value: jsonScalar(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// UnmarshalYAML decodes a YAML mapping keeping the key order.
func (d *Details) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*d = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("details: expected mapping at line %d", value.Line)
	}

	out := make(Details, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var raw any
		if err := value.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("details %q: %w", key, err)
		}
		out = append(out, Detail{Key: key, Value: yamlScalar(raw)})
	}
	*d = out
	return nil
}

// MarshalYAML encodes the details as an ordered YAML mapping.
func (d Details) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range d {
		var val yaml.Node
		if err := val.Encode(kv.Value); err != nil {
			return nil, fmt.Errorf("detail %q: %w", kv.Key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.Key},
			&val,
		)
	}
	return node, nil
}

func jsonScalar(raw any) any {
	switch v := raw.(type) {
	case nil, string, bool:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return compact(v)
	}
}

func yamlScalar(raw any) any {
	switch v := raw.(type) {
	case nil, string, bool, float64, int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return float64(v)
	default:
		return compact(v)
	}
}

// compact renders a nested value as JSON text so it can still be shown verbatim.
func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
