package track

import (
	"fmt"
	"io"
	"slices"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

type CompileOption func(c *compiler)

// WithScale applies a uniform scale after all document transforms.
func WithScale(f float64) CompileOption {
	return func(c *compiler) {
		c.scale = f
	}
}

func WithName(name string) CompileOption {
	return func(c *compiler) {
		c.name = name
	}
}

type compiler struct {
	scale float64
	name  string
	log   *log.Logger
}

// Compile turns an svg track definition into a waypoint graph, collision
// primitives and spawn markers. All returned coordinates are in runtime
// space (Y up).
func Compile(r io.Reader, opts ...CompileOption) (*Track, error) {
	c := &compiler{
		scale: 1,
		log:   log.Default().Named("track"),
	}
	for _, opt := range opts {
		opt(c)
	}
	sr, err := readSVG(r)
	if err != nil {
		return nil, err
	}
	return c.compile(sr)
}

func (c *compiler) compile(sr *svgReader) (*Track, error) {
	graph, err := c.buildGraph(sr.polygons)
	if err != nil {
		return nil, err
	}
	ret := &Track{
		Name:         c.name,
		Graph:        graph,
		Primitives:   make([]CollisionPrimitive, 0),
		SpawnMarkers: make([]SpawnMarker, 0),
	}
	for i := range sr.polygons {
		p := &sr.polygons[i]
		surface, ok := p.class.Surface()
		if !ok {
			continue
		}
		for _, ring := range p.rings {
			tris, err := Triangulate(c.toRuntimeRing(ring))
			if err != nil {
				return nil, shapeErr(p.label, err)
			}
			for _, tri := range tris {
				ret.Primitives = append(ret.Primitives, CollisionPrimitive{
					Surface:  surface,
					Vertices: orient(tri),
				})
			}
		}
	}
	for _, m := range sr.markers {
		if m.class != MarkerPickup {
			continue
		}
		ret.SpawnMarkers = append(ret.SpawnMarkers, SpawnMarker{
			Position: c.toRuntime(m.center),
			Radius:   m.radius * c.scale,
		})
	}
	c.log.Debug("compiled track",
		log.String("name", c.name),
		log.Int("waypoints", graph.Len()),
		log.Int("primitives", len(ret.Primitives)),
		log.Int("spawnMarkers", len(ret.SpawnMarkers)))
	return ret, nil
}

// buildGraph turns the single track polygon into the waypoint cycle.
// Travel order is the reverse of the document order.
func (c *compiler) buildGraph(polygons []polygonShape) (*Graph, error) {
	var found *polygonShape
	for i := range polygons {
		if polygons[i].class != ShapeTrack {
			continue
		}
		if found != nil {
			return nil, shapeErr(polygons[i].label,
				fmt.Errorf("%w: first was %s", ErrDuplicateTrack, found.label))
		}
		found = &polygons[i]
	}
	if found == nil {
		return nil, shapeErr("document", ErrNoTrack)
	}
	if len(found.rings) != 1 {
		return nil, shapeErr(found.label,
			fmt.Errorf("%w: got %d", ErrMultipleRings, len(found.rings)))
	}
	ring := cleanRing(c.toRuntimeRing(found.rings[0]))
	if len(ring) < 3 {
		return nil, shapeErr(found.label, ErrDegenerateTrack)
	}
	slices.Reverse(ring)
	g, err := NewGraph(ring)
	if err != nil {
		return nil, shapeErr(found.label, err)
	}
	return g, nil
}

func (c *compiler) toRuntime(p geom.Vec2) geom.Vec2 {
	return geom.V(p.X()*c.scale, -p.Y()*c.scale)
}

func (c *compiler) toRuntimeRing(ring []geom.Vec2) []geom.Vec2 {
	ret := make([]geom.Vec2, len(ring))
	for i, p := range ring {
		ret[i] = c.toRuntime(p)
	}
	return ret
}
