package track

import (
	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// ShapeClass is the semantic class of a polygon in a track definition.
type ShapeClass int

const (
	ShapeUntagged ShapeClass = iota
	ShapeTrack
	ShapeCollider
	ShapeSlow
)

func (c ShapeClass) String() string {
	switch c {
	case ShapeUntagged:
		return "untagged"
	case ShapeTrack:
		return "track"
	case ShapeCollider:
		return "collider"
	case ShapeSlow:
		return "slow"
	}
	return "unknown"
}

// Surface maps a polygon class to the surface of the primitives it produces.
// Untagged polygons produce no primitives.
func (c ShapeClass) Surface() (SurfaceClass, bool) {
	switch c {
	case ShapeTrack:
		return SurfaceTrack, true
	case ShapeCollider:
		return SurfaceStaticObstacle, true
	case ShapeSlow:
		return SurfaceSpeedZone, true
	case ShapeUntagged:
		return 0, false
	}
	return 0, false
}

type MarkerClass int

const (
	MarkerUntagged MarkerClass = iota
	MarkerPickup
)

func (c MarkerClass) String() string {
	switch c {
	case MarkerUntagged:
		return "untagged"
	case MarkerPickup:
		return "pickup"
	}
	return "unknown"
}

// SurfaceClass tells the physics side how to treat a collision primitive.
type SurfaceClass int

const (
	// SurfaceTrack covers the drivable area enclosed by the racing line.
	SurfaceTrack SurfaceClass = iota
	SurfaceStaticObstacle
	SurfaceSpeedZone
)

func (s SurfaceClass) String() string {
	switch s {
	case SurfaceTrack:
		return "track"
	case SurfaceStaticObstacle:
		return "static-obstacle"
	case SurfaceSpeedZone:
		return "speed-zone"
	}
	return "unknown"
}

// CollisionPrimitive is a counter-clockwise triangle.
type CollisionPrimitive struct {
	Surface  SurfaceClass
	Vertices [3]geom.Vec2
}

func (p CollisionPrimitive) Area() float64 {
	return geom.TriangleArea(p.Vertices[0], p.Vertices[1], p.Vertices[2])
}

func (p CollisionPrimitive) Contains(pos geom.Vec2) bool {
	return geom.PointInTriangle(pos, p.Vertices[0], p.Vertices[1], p.Vertices[2])
}

// SpawnMarker is a location where the item-pickup subsystem may spawn items.
type SpawnMarker struct {
	Position geom.Vec2
	Radius   float64
}

// Track is the result of compiling a track definition.
type Track struct {
	Name         string
	Graph        *Graph
	Primitives   []CollisionPrimitive
	SpawnMarkers []SpawnMarker
}

// PrimitivesBySurface returns the primitives of the given surface class.
func (t *Track) PrimitivesBySurface(s SurfaceClass) []CollisionPrimitive {
	ret := make([]CollisionPrimitive, 0)
	for i := range t.Primitives {
		if t.Primitives[i].Surface == s {
			ret = append(ret, t.Primitives[i])
		}
	}
	return ret
}

// InSurface reports whether pos lies inside any primitive of surface s.
func (t *Track) InSurface(pos geom.Vec2, s SurfaceClass) bool {
	for i := range t.Primitives {
		if t.Primitives[i].Surface == s && t.Primitives[i].Contains(pos) {
			return true
		}
	}
	return false
}
