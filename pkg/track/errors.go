package track

import (
	"errors"
	"fmt"
)

var (
	ErrNoTrack                = errors.New("no polygon with class track")
	ErrDuplicateTrack         = errors.New("more than one polygon with class track")
	ErrDegenerateTrack        = errors.New("track polygon needs at least 3 distinct points")
	ErrMultipleRings          = errors.New("track polygon must be a single ring")
	ErrBrokenChain            = errors.New("waypoint chain is not a single closed cycle")
	ErrUnsupportedPathCommand = errors.New("unsupported path command")
	ErrInvalidCoordinate      = errors.New("invalid coordinate")
	ErrInvalidTransform       = errors.New("invalid transform")
	ErrTessellation           = errors.New("polygon cannot be tessellated")
	ErrUnknownTrack           = errors.New("unknown track")
)

// ShapeError identifies the shape of a track definition that could not
// be compiled.
type ShapeError struct {
	Shape string
	Err   error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape %s: %v", e.Shape, e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

func shapeErr(shape string, err error) error {
	return &ShapeError{Shape: shape, Err: err}
}
