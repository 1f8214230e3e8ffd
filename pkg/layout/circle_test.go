package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/topoview/pkg/topology"
)

const eps = 1e-9

func node(id string, c topology.Category, conns ...string) topology.Node {
	return topology.Node{ID: id, Category: c, Status: topology.StatusOnline, Connections: conns}
}

func angleOf(p topology.Point, cfg Config) float64 {
	a := math.Atan2(p.Y-cfg.CenterY, p.X-cfg.CenterX)
	if a < -eps {
		a += 2 * math.Pi
	}
	return a
}

func TestScenarioArcs(t *testing.T) {
	nodes := []topology.Node{
		node("a", topology.CategoryDatabase, "b"),
		node("b", topology.CategoryServer, "c"),
		node("c", topology.CategoryServer),
	}

	arcs := Arcs(nodes)
	require.Len(t, arcs, 2)

	assert.Equal(t, topology.CategoryDatabase, arcs[0].Category)
	assert.InDelta(t, 0, arcs[0].Start, eps)
	assert.InDelta(t, 2*math.Pi/3, arcs[0].Span, eps)

	assert.Equal(t, topology.CategoryServer, arcs[1].Category)
	assert.InDelta(t, 2*math.Pi/3, arcs[1].Start, eps)
	assert.InDelta(t, 4*math.Pi/3, arcs[1].Span, eps)
	assert.Equal(t, []string{"b", "c"}, arcs[1].Members)

	pos := Positions(nodes, Default)
	assert.InDelta(t, 2*math.Pi/3, angleOf(pos[1], Default), eps)
	assert.InDelta(t, 2*math.Pi/3+2*math.Pi/3, angleOf(pos[2], Default), eps)
}

func TestArcsCoverFullCircle(t *testing.T) {
	nodes := []topology.Node{
		node("1", topology.CategorySensor),
		node("2", topology.CategoryVehicle),
		node("3", topology.CategorySensor),
		node("4", topology.CategoryLocation),
		node("5", topology.CategorySensor),
		node("6", topology.CategoryUser),
		node("7", topology.CategoryVehicle),
	}

	arcs := Arcs(nodes)
	sum := 0.0
	for i, a := range arcs {
		sum += a.Span
		assert.InDelta(t, 2*math.Pi*float64(len(a.Members))/float64(len(nodes)), a.Span, eps, a.Category)
		if i > 0 {
			assert.InDelta(t, arcs[i-1].End(), a.Start, eps, "arcs must be contiguous")
		}
	}
	assert.InDelta(t, 2*math.Pi, sum, eps)
	assert.Equal(t, []topology.Category{
		topology.CategorySensor, topology.CategoryVehicle, topology.CategoryLocation, topology.CategoryUser,
	}, []topology.Category{arcs[0].Category, arcs[1].Category, arcs[2].Category, arcs[3].Category})
}

func TestMembersEquallySpaced(t *testing.T) {
	nodes := []topology.Node{
		node("s1", topology.CategoryService),
		node("c1", topology.CategoryClient),
		node("s2", topology.CategoryService),
		node("s3", topology.CategoryService),
		node("c2", topology.CategoryClient),
	}
	cfg := Config{CenterX: 0, CenterY: 0, Radius: 100}
	pos := Positions(nodes, cfg)
	arcs := Arcs(nodes)

	for _, a := range arcs {
		var angles []float64
		for _, id := range a.Members {
			for i, n := range nodes {
				if n.ID == id {
					angles = append(angles, angleOf(pos[i], cfg))
				}
			}
		}
		assert.InDelta(t, a.Start, angles[0], 1e-6)
		for i := 1; i < len(angles); i++ {
			assert.InDelta(t, a.Step(), angles[i]-angles[i-1], 1e-6, a.Category)
		}
		assert.InDelta(t, a.Span, a.Step()*float64(len(a.Members)), eps)
	}
	for _, p := range pos {
		assert.InDelta(t, 100, math.Hypot(p.X, p.Y), 1e-6)
	}
}

func TestSingleMemberAtArcStart(t *testing.T) {
	nodes := []topology.Node{
		node("srv1", topology.CategoryServer),
		node("srv2", topology.CategoryServer),
		node("car", topology.CategoryVehicle),
	}
	cfg := Default
	pos := Positions(nodes, cfg)
	arcs := Arcs(nodes)

	assert.InDelta(t, arcs[1].Start, angleOf(pos[2], cfg), 1e-6)
}

func TestEmpty(t *testing.T) {
	assert.Nil(t, Arcs(nil))
	assert.Empty(t, Positions(nil, Default))
	assert.Equal(t, 0, Apply(topology.New(nil), Default).Len())
	assert.Equal(t, 0, Apply(nil, Default).Len())
}

func TestApplyIsIdempotent(t *testing.T) {
	snap := topology.New([]topology.Node{
		node("a", topology.CategoryDatabase),
		node("b", topology.CategoryServer),
		node("c", topology.CategoryClient),
		node("d", topology.CategoryServer),
	})

	first := Apply(snap, Default)
	second := Apply(snap, Default)
	again := Apply(first, Default)

	require.True(t, first.Positioned())
	for i := range first.Nodes {
		assert.Equal(t, *first.Nodes[i].Position, *second.Nodes[i].Position)
		assert.Equal(t, *first.Nodes[i].Position, *again.Nodes[i].Position)
	}
	assert.False(t, snap.Positioned())
}

func TestForSize(t *testing.T) {
	cfg := ForSize(1000, 500)
	assert.Equal(t, 500.0, cfg.CenterX)
	assert.Equal(t, 250.0, cfg.CenterY)
	assert.InDelta(t, 175, cfg.Radius, eps)

	assert.Equal(t, Default, ForSize(0, 600))
	assert.Equal(t, topology.Point{X: 500, Y: 250}, cfg.Center())
}
