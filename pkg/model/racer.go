package model

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
)

var (
	ErrUnknownRacer     = errors.New("unknown racer")
	ErrDuplicateRacer   = errors.New("racer already registered")
	ErrInvalidProgress  = errors.New("progress references a non-existent waypoint")
	ErrUnknownRacerKind = errors.New("unknown racer kind")
)

type RacerID string

type RacerKind int

const (
	RacerAI RacerKind = iota
	RacerPlayer
)

func (k RacerKind) String() string {
	if k == RacerPlayer {
		return "player"
	}
	return "ai"
}

func ParseRacerKind(s string) (RacerKind, error) {
	switch s {
	case "player":
		return RacerPlayer, nil
	case "ai":
		return RacerAI, nil
	default:
		return RacerAI, fmt.Errorf("%w: %q", ErrUnknownRacerKind, s)
	}
}

func (k RacerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RacerKind) UnmarshalText(text []byte) error {
	v, err := ParseRacerKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// RacerSpec describes a racer taking part in a race
type RacerSpec struct {
	ID    RacerID   `json:"id"`
	Name  string    `json:"name"`
	Kind  RacerKind `json:"kind"`
	Frame string    `json:"frame,omitempty"`
}

// RacerState is the kinematic state reported by the physics side each tick.
// Rotation is the heading angle in radians, counter-clockwise.
type RacerState struct {
	ID       RacerID   `json:"id"`
	Position geom.Vec2 `json:"position"`
	Rotation float64   `json:"rotation"`
	Velocity geom.Vec2 `json:"velocity"`
}

func (s RacerState) Speed() float64 {
	return s.Velocity.Len()
}

type Progress struct {
	LapCount                 int     `json:"lapCount"`
	LastCheckpointIndex      int     `json:"lastCheckpointIndex"`
	DistanceToNextCheckpoint float64 `json:"distanceToNextCheckpoint"`
	NextCheckpoint           int     `json:"nextCheckpoint"`
}

// Command is the control output for a racer. Both values are in [-1,1].
type Command struct {
	Turn  float64 `json:"turn"`
	Accel float64 `json:"accel"`
}

type AiSteeringState struct {
	CurrentTarget int     `json:"currentTarget"`
	LastCommand   Command `json:"lastCommand"`
}
