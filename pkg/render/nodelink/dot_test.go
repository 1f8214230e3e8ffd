package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/topoview/pkg/layout"
	"github.com/matzehuels/topoview/pkg/topology"
)

func testSnapshot() *topology.Snapshot {
	return topology.New([]topology.Node{
		{ID: "db-1", Name: "Primary DB", Category: topology.CategoryDatabase, Status: topology.StatusOnline, Connections: []string{"api"},
			Details: topology.Details{{Key: "engine", Value: "postgres"}}},
		{ID: "api", Category: topology.CategoryService, Status: topology.StatusOffline, Connections: []string{"ghost"}},
	})
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testSnapshot(), Options{})

	for _, want := range []string{
		`"db-1" [label="DB\nPrimary DB", fillcolor="#10b981"`,
		`"api" [label="SC\napi", fillcolor="#6b7280"`,
		`style="filled,dashed"`,
		`"db-1" -> "api";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "ghost") {
		t.Error("dangling connection should be skipped")
	}
	if strings.Contains(dot, "pos=") {
		t.Error("unpinned DOT should not carry positions")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testSnapshot(), Options{Detailed: true})
	if !strings.Contains(dot, `status: online\nengine: postgres`) {
		t.Errorf("detailed label missing rows:\n%s", dot)
	}
}

func TestToDOTPinned(t *testing.T) {
	laid := layout.Apply(testSnapshot(), layout.Default)
	dot := ToDOT(laid, Options{Pinned: true})
	// db-1 sits at angle 0: (600, 300) px.
	if !strings.Contains(dot, `pos="450.00,-225.00!"`) {
		t.Errorf("pinned DOT missing position:\n%s", dot)
	}

	unlaid := ToDOT(testSnapshot(), Options{Pinned: true})
	if strings.Contains(unlaid, "pos=") {
		t.Error("unpositioned snapshot cannot be pinned")
	}
}

func TestToDOTNil(t *testing.T) {
	if got := ToDOT(nil, Options{}); !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToDOT(nil) = %q", got)
	}
}

func TestExport(t *testing.T) {
	svg, err := Export(context.Background(), testSnapshot(), Options{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("unexpected SVG header: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %q, want %q", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox should be unchanged")
	}
}
