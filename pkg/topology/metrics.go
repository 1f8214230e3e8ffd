package topology

// Metrics holds optional gauges. A nil field means the metric is absent
// and must not be rendered.
type Metrics struct {
	CPU         *float64 `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory      *float64 `json:"memory,omitempty" yaml:"memory,omitempty"`
	Disk        *float64 `json:"disk,omitempty" yaml:"disk,omitempty"`
	Network     *float64 `json:"network,omitempty" yaml:"network,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Battery     *float64 `json:"battery,omitempty" yaml:"battery,omitempty"`
}

// Units used by metric readings.
const (
	UnitPercent = "%"
	UnitCelsius = "°C"
)

// Reading is one present metric value, ready for display.
type Reading struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Percent reports whether the reading is a 0-100 gauge.
func (r Reading) Percent() bool { return r.Unit == UnitPercent }

// Readings returns the present metrics in a fixed display order.
func (m Metrics) Readings() []Reading {
	var out []Reading
	add := func(key, label string, v *float64, unit string) {
		if v != nil {
			out = append(out, Reading{Key: key, Label: label, Value: *v, Unit: unit})
		}
	}
	add("cpu", "CPU", m.CPU, UnitPercent)
	add("memory", "Memory", m.Memory, UnitPercent)
	add("disk", "Disk", m.Disk, UnitPercent)
	add("network", "Network", m.Network, UnitPercent)
	add("temperature", "Temperature", m.Temperature, UnitCelsius)
	add("battery", "Battery", m.Battery, UnitPercent)
	return out
}

// Empty reports whether no metric is present.
func (m Metrics) Empty() bool {
	return m.CPU == nil && m.Memory == nil && m.Disk == nil &&
		m.Network == nil && m.Temperature == nil && m.Battery == nil
}

// IsZero lets yaml omitempty drop metrics that carry no values.
func (m Metrics) IsZero() bool { return m.Empty() }

func (m Metrics) clone() Metrics {
	cp := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		x := *v
		return &x
	}
	return Metrics{
		CPU:         cp(m.CPU),
		Memory:      cp(m.Memory),
		Disk:        cp(m.Disk),
		Network:     cp(m.Network),
		Temperature: cp(m.Temperature),
		Battery:     cp(m.Battery),
	}
}

// Float returns a pointer to v, for building metrics in code.
func Float(v float64) *float64 { return &v }
