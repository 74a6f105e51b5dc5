package track

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// parseTransform parses an svg transform list into a homogeneous 2D matrix.
// Supported: matrix, translate, scale, rotate.
//
//nolint:cyclop // one case per function
func parseTransform(s string) (mgl64.Mat3, error) {
	ret := mgl64.Ident3()
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return ret, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", "))
		args, err := parseNumbers(rest[open+1 : closing])
		if err != nil {
			return ret, err
		}
		var m mgl64.Mat3
		switch {
		case name == "matrix" && len(args) == 6:
			m = mgl64.Mat3{args[0], args[1], 0, args[2], args[3], 0, args[4], args[5], 1}
		case name == "translate" && len(args) == 1:
			m = mgl64.Translate2D(args[0], 0)
		case name == "translate" && len(args) == 2:
			m = mgl64.Translate2D(args[0], args[1])
		case name == "scale" && len(args) == 1:
			m = mgl64.Scale2D(args[0], args[0])
		case name == "scale" && len(args) == 2:
			m = mgl64.Scale2D(args[0], args[1])
		case name == "rotate" && len(args) == 1:
			m = mgl64.HomogRotate2D(mgl64.DegToRad(args[0]))
		case name == "rotate" && len(args) == 3:
			m = mgl64.Translate2D(args[1], args[2]).
				Mul3(mgl64.HomogRotate2D(mgl64.DegToRad(args[0]))).
				Mul3(mgl64.Translate2D(-args[1], -args[2]))
		default:
			return ret, fmt.Errorf("%w: %s with %d arguments", ErrInvalidTransform, name, len(args))
		}
		ret = ret.Mul3(m)
		rest = strings.TrimSpace(rest[closing+1:])
	}
	return ret, nil
}

func apply(m mgl64.Mat3, p geom.Vec2) geom.Vec2 {
	return m.Mul3x1(p.Vec3(1)).Vec2()
}
