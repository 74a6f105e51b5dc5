package track

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

// svgNode is a generic element of the svg tree.
type svgNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []svgNode  `xml:",any"`
}

func (n *svgNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *svgNode) floatAttr(name string) (float64, error) {
	s, ok := n.attr(name)
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidCoordinate, name, s)
	}
	return v, nil
}

func (n *svgNode) classes() []string {
	s, _ := n.attr("class")
	return strings.Fields(s)
}

// polygonShape is a polygon-like element with its transform already applied.
type polygonShape struct {
	label string
	class ShapeClass
	rings [][]geom.Vec2
}

type markerShape struct {
	label  string
	class  MarkerClass
	center geom.Vec2
	radius float64
}

// elements that never contribute geometry
var skippedElements = map[string]bool{
	"defs":     true,
	"clipPath": true,
	"mask":     true,
	"symbol":   true,
	"metadata": true,
	"title":    true,
	"desc":     true,
	"style":    true,
}

type svgReader struct {
	polygons []polygonShape
	markers  []markerShape
	ordinal  int
}

func readSVG(r io.Reader) (*svgReader, error) {
	var root svgNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}
	if root.XMLName.Local != "svg" {
		return nil, fmt.Errorf("decode svg: root element is %q", root.XMLName.Local)
	}
	sr := &svgReader{}
	if err := sr.walk(&root, mgl64.Ident3()); err != nil {
		return nil, err
	}
	return sr, nil
}

// label names a shape for diagnostics: its id if present, otherwise the
// element name with its document ordinal.
func (sr *svgReader) label(n *svgNode) string {
	if id, ok := n.attr("id"); ok && id != "" {
		return fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("%s#%d", n.XMLName.Local, sr.ordinal)
}

//nolint:cyclop // one case per element
func (sr *svgReader) walk(n *svgNode, parent mgl64.Mat3) error {
	if skippedElements[n.XMLName.Local] {
		return nil
	}
	m := parent
	if s, ok := n.attr("transform"); ok {
		t, err := parseTransform(s)
		if err != nil {
			return shapeErr(sr.label(n), err)
		}
		m = parent.Mul3(t)
	}

	switch n.XMLName.Local {
	case "polygon", "polyline", "path":
		sr.ordinal++
		if err := sr.addPolygon(n, m); err != nil {
			return shapeErr(sr.label(n), err)
		}
	case "circle", "ellipse", "rect":
		sr.ordinal++
		if err := sr.addMarker(n, m); err != nil {
			return shapeErr(sr.label(n), err)
		}
	}

	for i := range n.Nodes {
		if err := sr.walk(&n.Nodes[i], m); err != nil {
			return err
		}
	}
	return nil
}

func (sr *svgReader) addPolygon(n *svgNode, m mgl64.Mat3) error {
	var rings [][]geom.Vec2
	if n.XMLName.Local == "path" {
		d, _ := n.attr("d")
		r, err := parsePathData(d)
		if err != nil {
			return err
		}
		rings = r
	} else {
		pts, _ := n.attr("points")
		ring, err := parsePoints(pts)
		if err != nil {
			return err
		}
		rings = [][]geom.Vec2{ring}
	}
	for _, ring := range rings {
		for i := range ring {
			ring[i] = apply(m, ring[i])
		}
	}
	sr.polygons = append(sr.polygons, polygonShape{
		label: sr.label(n),
		class: shapeClassOf(n.classes()),
		rings: rings,
	})
	return nil
}

//nolint:funlen // three element kinds
func (sr *svgReader) addMarker(n *svgNode, m mgl64.Mat3) error {
	class := markerClassOf(n.classes())
	if class == MarkerUntagged {
		return nil
	}
	var center geom.Vec2
	var radius float64
	switch n.XMLName.Local {
	case "circle":
		cx, err := n.floatAttr("cx")
		if err != nil {
			return err
		}
		cy, err := n.floatAttr("cy")
		if err != nil {
			return err
		}
		r, err := n.floatAttr("r")
		if err != nil {
			return err
		}
		center, radius = geom.V(cx, cy), r
	case "ellipse":
		cx, err := n.floatAttr("cx")
		if err != nil {
			return err
		}
		cy, err := n.floatAttr("cy")
		if err != nil {
			return err
		}
		rx, err := n.floatAttr("rx")
		if err != nil {
			return err
		}
		ry, err := n.floatAttr("ry")
		if err != nil {
			return err
		}
		center, radius = geom.V(cx, cy), max(rx, ry)
	case "rect":
		x, err := n.floatAttr("x")
		if err != nil {
			return err
		}
		y, err := n.floatAttr("y")
		if err != nil {
			return err
		}
		w, err := n.floatAttr("width")
		if err != nil {
			return err
		}
		h, err := n.floatAttr("height")
		if err != nil {
			return err
		}
		center, radius = geom.V(x+w/2, y+h/2), min(w, h)/2
	}
	// radius follows the x axis scale of the transform
	edge := apply(m, center.Add(geom.V(radius, 0)))
	center = apply(m, center)
	sr.markers = append(sr.markers, markerShape{
		label:  sr.label(n),
		class:  class,
		center: center,
		radius: geom.Distance(center, edge),
	})
	return nil
}

func shapeClassOf(classes []string) ShapeClass {
	for _, c := range classes {
		switch c {
		case "track":
			return ShapeTrack
		case "collider":
			return ShapeCollider
		case "slow":
			return ShapeSlow
		}
	}
	return ShapeUntagged
}

func markerClassOf(classes []string) MarkerClass {
	for _, c := range classes {
		if c == "pickup" {
			return MarkerPickup
		}
	}
	return MarkerUntagged
}
