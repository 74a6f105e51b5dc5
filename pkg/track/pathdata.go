package track

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// parseNumbers splits an attribute value like "10,20 -3.5e1-4" into numbers.
func parseNumbers(s string) ([]float64, error) {
	ret := make([]float64, 0)
	for _, tok := range numberTokens(s) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCoordinate, tok)
		}
		ret = append(ret, v)
	}
	return ret, nil
}

//nolint:gocognit // tokenizer
func numberTokens(s string) []string {
	ret := make([]string, 0)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			ret = append(ret, cur.String())
			cur.Reset()
		}
	}
	seenDot := false
	prev := rune(0)
	for _, r := range s {
		switch {
		case r == ',' || unicode.IsSpace(r):
			flush()
			seenDot = false
		case r == '-' || r == '+':
			if prev != 'e' && prev != 'E' {
				flush()
				seenDot = false
			}
			cur.WriteRune(r)
		case r == '.':
			// "1.5.5" is two numbers: 1.5 and .5
			if seenDot {
				flush()
			}
			seenDot = true
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return ret
}

// parsePoints parses the points attribute of polygon and polyline elements.
func parsePoints(s string) ([]geom.Vec2, error) {
	nums, err := parseNumbers(s)
	if err != nil {
		return nil, err
	}
	if len(nums)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of values in points", ErrInvalidCoordinate)
	}
	ret := make([]geom.Vec2, 0, len(nums)/2)
	for i := 0; i < len(nums); i += 2 {
		ret = append(ret, geom.V(nums[i], nums[i+1]))
	}
	return ret, nil
}

// parsePathData parses the d attribute of a path element into rings.
// Only straight segments are supported: M, L, H, V and Z in absolute
// and relative form.
//
//nolint:funlen,gocognit,cyclop // path grammar
func parsePathData(d string) ([][]geom.Vec2, error) {
	rings := make([][]geom.Vec2, 0)
	var ring []geom.Vec2
	var cur, start geom.Vec2
	closeRing := func() {
		if len(ring) > 0 {
			rings = append(rings, ring)
		}
		ring = nil
	}

	segments, err := splitPathCommands(d)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		nums, err := parseNumbers(seg.args)
		if err != nil {
			return nil, err
		}
		rel := unicode.IsLower(seg.cmd)
		switch unicode.ToUpper(seg.cmd) {
		case 'M':
			if len(nums) < 2 || len(nums)%2 != 0 {
				return nil, fmt.Errorf("%w: moveto needs coordinate pairs", ErrInvalidCoordinate)
			}
			closeRing()
			for i := 0; i < len(nums); i += 2 {
				p := geom.V(nums[i], nums[i+1])
				if rel {
					p = cur.Add(p)
				}
				if i == 0 {
					start = p
				}
				ring = append(ring, p)
				cur = p
			}
		case 'L':
			if len(nums) == 0 || len(nums)%2 != 0 {
				return nil, fmt.Errorf("%w: lineto needs coordinate pairs", ErrInvalidCoordinate)
			}
			for i := 0; i < len(nums); i += 2 {
				p := geom.V(nums[i], nums[i+1])
				if rel {
					p = cur.Add(p)
				}
				ring = append(ring, p)
				cur = p
			}
		case 'H':
			for _, x := range nums {
				if rel {
					x += cur.X()
				}
				cur = geom.V(x, cur.Y())
				ring = append(ring, cur)
			}
		case 'V':
			for _, y := range nums {
				if rel {
					y += cur.Y()
				}
				cur = geom.V(cur.X(), y)
				ring = append(ring, cur)
			}
		case 'Z':
			closeRing()
			cur = start
		default:
			return nil, fmt.Errorf("%w: %c", ErrUnsupportedPathCommand, seg.cmd)
		}
	}
	closeRing()
	return rings, nil
}

type pathSegment struct {
	cmd  rune
	args string
}

func splitPathCommands(d string) ([]pathSegment, error) {
	ret := make([]pathSegment, 0)
	var cur *pathSegment
	for _, r := range d {
		if unicode.IsLetter(r) && r != 'e' && r != 'E' {
			if cur != nil {
				ret = append(ret, *cur)
			}
			cur = &pathSegment{cmd: r}
			continue
		}
		if cur == nil {
			if unicode.IsSpace(r) {
				continue
			}
			return nil, fmt.Errorf("%w: path data must start with a command", ErrInvalidCoordinate)
		}
		cur.args += string(r)
	}
	if cur != nil {
		ret = append(ret, *cur)
	}
	return ret, nil
}
