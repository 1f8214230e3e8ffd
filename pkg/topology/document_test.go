package topology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/topoview/pkg/errors"
)

const yamlDoc = `
nodes:
  - id: pg-main
    name: Primary DB
    category: database
    status: online
    connections: [api-1]
    metrics: {cpu: 41, memory: 73.5, temperature: -3}
    details:
      engine: postgres
      replicas: 2
      ha: true
      tags: [a, b]
  - id: api-1
    name: API
    category: server
    status: error
`

func TestUnmarshalYAML(t *testing.T) {
	s, err := Unmarshal([]byte(yamlDoc), FormatYAML, WithSource("test"))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "test", s.Source)

	db := s.Nodes[0]
	assert.Equal(t, CategoryDatabase, db.Category)
	assert.Equal(t, []string{"api-1"}, db.Connections)
	require.NotNil(t, db.Metrics.CPU)
	assert.Equal(t, 41.0, *db.Metrics.CPU)
	assert.Equal(t, -3.0, *db.Metrics.Temperature)
	assert.Nil(t, db.Metrics.Battery)

	require.Len(t, db.Details, 4)
	assert.Equal(t, []string{"engine", "replicas", "ha", "tags"},
		[]string{db.Details[0].Key, db.Details[1].Key, db.Details[2].Key, db.Details[3].Key})
	assert.Equal(t, int64(2), db.Details[1].Value)
	assert.Equal(t, true, db.Details[2].Value)
	assert.Equal(t, `["a","b"]`, db.Details[3].Value)
}

func TestUnmarshalJSONKeepsDetailOrder(t *testing.T) {
	doc := `{"nodes":[{"id":"s1","category":"sensor","status":"online",
		"details":{"zeta":"z","alpha":1.5,"mid":3,"none":null}}]}`

	s, err := Unmarshal([]byte(doc), FormatJSON)
	require.NoError(t, err)

	d := s.Nodes[0].Details
	require.Len(t, d, 4)
	assert.Equal(t, "zeta", d[0].Key)
	assert.Equal(t, 1.5, d[1].Value)
	assert.Equal(t, int64(3), d[2].Value)
	assert.Nil(t, d[3].Value)
	assert.Equal(t, "—", d[3].String())
	assert.Equal(t, "1.5", d[1].String())
}

func TestUnmarshalBareArray(t *testing.T) {
	s, err := Unmarshal([]byte(` [{"id":"x","category":"user","status":"offline"}]`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	s, err = Unmarshal([]byte("- id: y\n  category: vehicle\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "y", s.Nodes[0].ID)
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte(`{nope`), FormatJSON)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidSnapshot))

	_, err = Unmarshal([]byte(`[{"id":"a"},{"id":"a"}]`), FormatJSON)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidSnapshot))

	_, err = Unmarshal([]byte(`[]`), Format("toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestUnmarshalEmptyDocument(t *testing.T) {
	s, err := Unmarshal([]byte(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMarshalRoundTripsDetails(t *testing.T) {
	s, err := Unmarshal([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)
	out := string(data)
	assert.Less(t, strings.Index(out, `"engine"`), strings.Index(out, `"replicas"`))

	back, err := Unmarshal(data, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, s.Nodes[0].Details, back.Nodes[0].Details)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	s, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Source)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	_, err = ReadFile(filepath.Join(dir, "topology.csv"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}
