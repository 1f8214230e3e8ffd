package interact

import (
	"github.com/matzehuels/topoview/pkg/topology"
)

// Detail is what the inspector panel shows for one node.
type Detail struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Category    topology.Category  `json:"category"`
	Status      topology.Status    `json:"status"`
	Metrics     []topology.Reading `json:"metrics"`
	Details     []Row              `json:"details"`
	Connections []topology.Summary `json:"connections"`
	Position    *topology.Point    `json:"position,omitempty"`
}

// Row is one label:value line of the details section.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// NewDetail builds the payload for node id. Missing metrics, details and
// dangling connections are left out.
func NewDetail(snap *topology.Snapshot, id string) (*Detail, bool) {
	n, ok := snap.Node(id)
	if !ok {
		return nil, false
	}
	d := &Detail{
		ID:          n.ID,
		Name:        n.Label(),
		Category:    n.Category,
		Status:      n.Status,
		Metrics:     n.Metrics.Readings(),
		Details:     make([]Row, 0, len(n.Details)),
		Connections: snap.Connected(id),
	}
	if d.Metrics == nil {
		d.Metrics = []topology.Reading{}
	}
	for _, kv := range n.Details {
		d.Details = append(d.Details, Row{Label: kv.Key, Value: kv.String()})
	}
	if n.Position != nil {
		p := *n.Position
		d.Position = &p
	}
	return d, true
}
