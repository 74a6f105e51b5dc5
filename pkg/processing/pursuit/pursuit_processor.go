package pursuit

import (
	"fmt"
	"math"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/progress"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

const (
	MaxAngleDeg       = 45.0
	ClosingInDistance = 10.0
	StallSpeed        = 2.0
	ThrottleBias      = 1.05
	CornerSpeedFactor = 2.0
)

// PursuitProcessor steers ai racers along the waypoint cycle.
type PursuitProcessor struct {
	State         map[model.RacerID]model.AiSteeringState
	graph         *track.Graph
	captureRadius float64
	log           *log.Logger
}

type PursuitProcessorOption func(p *PursuitProcessor)

func WithGraph(g *track.Graph) PursuitProcessorOption {
	return func(p *PursuitProcessor) {
		p.graph = g
	}
}

func WithCaptureRadius(r float64) PursuitProcessorOption {
	return func(p *PursuitProcessor) {
		p.captureRadius = r
	}
}

func (p *PursuitProcessor) CaptureRadius() float64 {
	return p.captureRadius
}

func NewPursuitProcessor(opts ...PursuitProcessorOption) *PursuitProcessor {
	ret := &PursuitProcessor{
		State:         make(map[model.RacerID]model.AiSteeringState),
		captureRadius: progress.CaptureRadius,
		log:           log.Default().Named("processing.pursuit"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Reset makes the racer target the start/finish line again.
func (p *PursuitProcessor) Reset(id model.RacerID) {
	p.State[id] = model.AiSteeringState{CurrentTarget: p.graph.Start().Index}
}

// Steer computes the control command for an ai racer.
// When the current target is captured the target advances and the
// previous command is repeated for this tick.
func (p *PursuitProcessor) Steer(id model.RacerID, kin model.RacerState) (model.Command, error) {
	st, ok := p.State[id]
	if !ok {
		return model.Command{}, fmt.Errorf("%w: %s", model.ErrUnknownRacer, id)
	}
	target, ok := p.graph.Lookup(st.CurrentTarget)
	if !ok {
		return model.Command{}, fmt.Errorf("%w: racer %s targets %d",
			model.ErrInvalidProgress, id, st.CurrentTarget)
	}
	next := p.graph.Next(target.Index)

	dist := geom.Distance(kin.Position, target.Position)
	if dist < p.captureRadius {
		st.CurrentTarget = next.Index
		p.State[id] = st
		return st.LastCommand, nil
	}

	cmd := p.command(kin, target.Position, next.Position, dist)
	st.LastCommand = cmd
	p.State[id] = st
	return cmd, nil
}

func (p *PursuitProcessor) command(
	kin model.RacerState,
	target, next geom.Vec2,
	dist float64,
) model.Command {
	toTarget := target.Sub(kin.Position)
	angleDeg := geom.SignedAngleDeg(geom.Forward(kin.Rotation), toTarget)
	turn := geom.Clamp(angleDeg/MaxAngleDeg, -1, 1)

	angleNextDeg := geom.SignedAngleDeg(toTarget, next.Sub(target))
	turnNext := geom.Clamp(angleNextDeg/MaxAngleDeg, -1, 1)

	closingIn := 1 - geom.Clamp(dist-p.captureRadius, 0, ClosingInDistance)/ClosingInDistance

	speed := kin.Speed()
	accelStraight := ThrottleBias - math.Abs(turn)
	accelCorner := math.Min(
		ThrottleBias-math.Abs(turnNext),
		geom.Clamp(geom.Distance(target, next)*CornerSpeedFactor-speed, -1, 1),
	)
	accel := math.Min(accelCorner*closingIn+accelStraight*(1-closingIn), accelStraight)
	if speed < StallSpeed {
		accel = 1
	}
	return model.Command{Turn: turn, Accel: geom.Clamp(accel, -1, 1)}
}
