// Package geom holds the small amount of 2D math shared by the track
// compiler, the progress engine and the pursuit controller.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Vec2 = mgl64.Vec2

func V(x, y float64) Vec2 {
	return Vec2{x, y}
}

func Distance(a, b Vec2) float64 {
	return b.Sub(a).Len()
}

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// SignedAngle returns the angle in radians that rotates from onto to.
// Counter-clockwise is positive. Zero vectors yield 0.
func SignedAngle(from, to Vec2) float64 {
	if from.Len() == 0 || to.Len() == 0 {
		return 0
	}
	return math.Atan2(Cross(from, to), from.Dot(to))
}

func SignedAngleDeg(from, to Vec2) float64 {
	return mgl64.RadToDeg(SignedAngle(from, to))
}

// Forward returns the heading of a body rotated by rotation radians.
// The unrotated body points along +Y.
func Forward(rotation float64) Vec2 {
	return Vec2{-math.Sin(rotation), math.Cos(rotation)}
}

func Clamp(v, lo, hi float64) float64 {
	return mgl64.Clamp(v, lo, hi)
}

// TriangleArea returns the signed area; positive for counter-clockwise order.
func TriangleArea(a, b, c Vec2) float64 {
	return Cross(b.Sub(a), c.Sub(a)) / 2
}

// PolygonArea returns the signed area of the closed ring.
func PolygonArea(ring []Vec2) float64 {
	sum := 0.0
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += Cross(ring[i], ring[j])
	}
	return sum / 2
}

// PointInTriangle reports whether p lies inside or on the edge of
// the counter-clockwise triangle abc.
func PointInTriangle(p, a, b, c Vec2) bool {
	return Cross(b.Sub(a), p.Sub(a)) >= 0 &&
		Cross(c.Sub(b), p.Sub(b)) >= 0 &&
		Cross(a.Sub(c), p.Sub(c)) >= 0
}
