package track

import (
	"fmt"
	"math"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// areaEpsilon is the smallest triangle area that is not treated as degenerate.
const areaEpsilon = 1e-9

// Triangulate splits a simple polygon into triangles by ear clipping.
// The ring may be given in either orientation and may be concave.
// Degenerate (collinear) corners are dropped without emitting a triangle.
func Triangulate(ring []geom.Vec2) ([][3]geom.Vec2, error) {
	ring = cleanRing(ring)
	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrTessellation, len(ring))
	}
	area := geom.PolygonArea(ring)
	if math.Abs(area) < areaEpsilon {
		return nil, fmt.Errorf("%w: zero area", ErrTessellation)
	}

	// work on indices in counter-clockwise order
	idx := make([]int, len(ring))
	for i := range idx {
		if area > 0 {
			idx[i] = i
		} else {
			idx[i] = len(ring) - 1 - i
		}
	}

	ret := make([][3]geom.Vec2, 0, len(ring)-2)
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			a, b, c := ring[prev], ring[cur], ring[next]
			corner := geom.TriangleArea(a, b, c)
			if math.Abs(corner) < areaEpsilon {
				// collinear corner, remove it
				idx = append(idx[:i], idx[i+1:]...)
				clipped = true
				break
			}
			if corner < 0 {
				continue // reflex
			}
			if containsOther(ring, idx, prev, cur, next) {
				continue
			}
			ret = append(ret, [3]geom.Vec2{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, fmt.Errorf("%w: no ear found with %d points left (self-intersecting?)",
				ErrTessellation, len(idx))
		}
	}
	last := [3]geom.Vec2{ring[idx[0]], ring[idx[1]], ring[idx[2]]}
	if math.Abs(geom.TriangleArea(last[0], last[1], last[2])) >= areaEpsilon {
		ret = append(ret, last)
	}
	return ret, nil
}

// containsOther reports whether any remaining vertex other than the corner
// itself lies within the candidate ear.
func containsOther(ring []geom.Vec2, idx []int, prev, cur, next int) bool {
	a, b, c := ring[prev], ring[cur], ring[next]
	for _, j := range idx {
		if j == prev || j == cur || j == next {
			continue
		}
		p := ring[j]
		if p == a || p == b || p == c {
			continue
		}
		if geom.PointInTriangle(p, a, b, c) {
			return true
		}
	}
	return false
}

// cleanRing drops repeated points and an explicit closing point.
func cleanRing(ring []geom.Vec2) []geom.Vec2 {
	ret := make([]geom.Vec2, 0, len(ring))
	for _, p := range ring {
		if len(ret) > 0 && ret[len(ret)-1] == p {
			continue
		}
		ret = append(ret, p)
	}
	for len(ret) > 1 && ret[0] == ret[len(ret)-1] {
		ret = ret[:len(ret)-1]
	}
	return ret
}

// orient returns the triangle in counter-clockwise order.
// The tessellator output order is not relied upon.
func orient(tri [3]geom.Vec2) [3]geom.Vec2 {
	if geom.TriangleArea(tri[0], tri[1], tri[2]) < 0 {
		tri[1], tri[2] = tri[2], tri[1]
	}
	return tri
}
