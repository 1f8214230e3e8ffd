package topology

import "math"

// Category is the kind of infrastructure element a node represents.
// The set is closed; unknown values decode without error and take the
// fallback arm wherever a category is mapped to something.
type Category string

const (
	CategoryDatabase Category = "database"
	CategoryServer   Category = "server"
	CategoryService  Category = "service"
	CategoryClient   Category = "client"
	CategorySensor   Category = "sensor"
	CategoryUser     Category = "user"
	CategoryVehicle  Category = "vehicle"
	CategoryLocation Category = "location"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryDatabase,
	CategoryServer,
	CategoryService,
	CategoryClient,
	CategorySensor,
	CategoryUser,
	CategoryVehicle,
	CategoryLocation,
}

// Known reports whether c is one of the closed set of categories.
func (c Category) Known() bool {
	switch c {
	case CategoryDatabase, CategoryServer, CategoryService, CategoryClient,
		CategorySensor, CategoryUser, CategoryVehicle, CategoryLocation:
		return true
	default:
		return false
	}
}

// Status is the health of a node as supplied by the snapshot.
// No transitions are enforced.
type Status string

const (
	StatusOnline  Status = "online"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Known reports whether s is one of the four statuses.
func (s Status) Known() bool {
	switch s {
	case StatusOnline, StatusWarning, StatusError, StatusOffline:
		return true
	default:
		return false
	}
}

// Point is a 2D canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Node is one infrastructure element.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	Status      Status   `json:"status" yaml:"status"`
	Connections []string `json:"connections,omitempty" yaml:"connections,omitempty"`
	Metrics     Metrics  `json:"metrics,omitzero" yaml:"metrics,omitempty"`
	Details     Details  `json:"details,omitempty" yaml:"details,omitempty"`

	// Position is derived by the layout engine and nil until then.
	Position *Point `json:"position,omitempty" yaml:"position,omitempty"`
}

// Label returns the display name, falling back to the id.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// clone returns a deep copy of n.
func (n Node) clone() Node {
	out := n
	if n.Connections != nil {
		out.Connections = append([]string(nil), n.Connections...)
	}
	if n.Details != nil {
		out.Details = append(Details(nil), n.Details...)
	}
	out.Metrics = n.Metrics.clone()
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	return out
}

// Edge is a directed connection derived from a node's connection list.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Summary identifies a node for click-through navigation.
type Summary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}
