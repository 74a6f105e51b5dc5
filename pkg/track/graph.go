package track

import (
	"fmt"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// Waypoint is a point of the racing line. Next is the arena index of the
// following waypoint in travel order. Index 0 is the start/finish line.
type Waypoint struct {
	Index    int
	Position geom.Vec2
	Next     int
}

// Graph is the directed waypoint cycle of a track.
// It is immutable once built and may be shared by all readers.
type Graph struct {
	waypoints []Waypoint
}

// NewGraph builds a closed cycle from positions given in travel order.
func NewGraph(positions []geom.Vec2) (*Graph, error) {
	if len(positions) < 3 {
		return nil, ErrDegenerateTrack
	}
	wps := make([]Waypoint, len(positions))
	for i, pos := range positions {
		wps[i] = Waypoint{Index: i, Position: pos, Next: i + 1}
	}
	wps[len(wps)-1].Next = 0
	g := &Graph{waypoints: wps}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) Len() int {
	return len(g.waypoints)
}

// At returns the waypoint with index i. It panics if i is out of range.
func (g *Graph) At(i int) Waypoint {
	if i < 0 || i >= len(g.waypoints) {
		panic(fmt.Sprintf("waypoint %d out of range [0,%d)", i, len(g.waypoints)))
	}
	return g.waypoints[i]
}

func (g *Graph) Lookup(i int) (Waypoint, bool) {
	if i < 0 || i >= len(g.waypoints) {
		return Waypoint{}, false
	}
	return g.waypoints[i], true
}

func (g *Graph) Contains(i int) bool {
	return i >= 0 && i < len(g.waypoints)
}

func (g *Graph) Start() Waypoint {
	return g.waypoints[0]
}

// Next returns the waypoint following i.
func (g *Graph) Next(i int) Waypoint {
	return g.waypoints[g.At(i).Next]
}

// Waypoints returns a copy of all waypoints in travel order.
func (g *Graph) Waypoints() []Waypoint {
	ret := make([]Waypoint, len(g.waypoints))
	copy(ret, g.waypoints)
	return ret
}

// Length is the length of one lap along the racing line.
func (g *Graph) Length() float64 {
	sum := 0.0
	for _, wp := range g.waypoints {
		sum += geom.Distance(wp.Position, g.waypoints[wp.Next].Position)
	}
	return sum
}

// Validate checks that following Next from the start visits every waypoint
// exactly once before returning to the start.
func (g *Graph) Validate() error {
	n := len(g.waypoints)
	if n == 0 {
		return ErrBrokenChain
	}
	visited := make([]bool, n)
	cur := 0
	for step := 0; step < n; step++ {
		wp := g.waypoints[cur]
		if wp.Index != cur {
			return fmt.Errorf("%w: waypoint at %d carries index %d", ErrBrokenChain, cur, wp.Index)
		}
		if visited[cur] {
			return fmt.Errorf("%w: waypoint %d visited twice", ErrBrokenChain, cur)
		}
		visited[cur] = true
		if wp.Next < 0 || wp.Next >= n {
			return fmt.Errorf("%w: waypoint %d points to %d", ErrBrokenChain, cur, wp.Next)
		}
		cur = wp.Next
	}
	if cur != 0 {
		return fmt.Errorf("%w: cycle does not return to start", ErrBrokenChain)
	}
	return nil
}
