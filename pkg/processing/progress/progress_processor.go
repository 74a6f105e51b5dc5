package progress

import (
	"fmt"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

// CaptureRadius is the distance under which a waypoint counts as reached.
const CaptureRadius = 5.0

// NewProgress returns the progress of a racer at (re)spawn.
func NewProgress(g *track.Graph) model.Progress {
	return model.Progress{
		LapCount:            0,
		LastCheckpointIndex: 0,
		NextCheckpoint:      g.Start().Index,
	}
}

type ProgressProcessor struct {
	Progress      map[model.RacerID]model.Progress
	graph         *track.Graph
	captureRadius float64
	log           *log.Logger
}

type ProgressProcessorOption func(p *ProgressProcessor)

func WithGraph(g *track.Graph) ProgressProcessorOption {
	return func(p *ProgressProcessor) {
		p.graph = g
	}
}

func WithCaptureRadius(r float64) ProgressProcessorOption {
	return func(p *ProgressProcessor) {
		p.captureRadius = r
	}
}

func NewProgressProcessor(opts ...ProgressProcessorOption) *ProgressProcessor {
	p := &ProgressProcessor{
		Progress:      make(map[model.RacerID]model.Progress),
		captureRadius: CaptureRadius,
		log:           log.Default().Named("processing.progress"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reset puts the racer back to the start of the race.
func (p *ProgressProcessor) Reset(id model.RacerID) {
	p.Progress[id] = NewProgress(p.graph)
}

func (p *ProgressProcessor) Get(id model.RacerID) (model.Progress, error) {
	prog, ok := p.Progress[id]
	if !ok {
		return model.Progress{}, fmt.Errorf("%w: %s", model.ErrUnknownRacer, id)
	}
	return prog, nil
}

// Set replaces the whole progress record of a racer.
func (p *ProgressProcessor) Set(id model.RacerID, prog model.Progress) error {
	if _, ok := p.Progress[id]; !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownRacer, id)
	}
	if err := p.Check(prog); err != nil {
		return err
	}
	p.Progress[id] = prog
	return nil
}

// Check verifies the record references existing waypoints.
func (p *ProgressProcessor) Check(prog model.Progress) error {
	if !p.graph.Contains(prog.NextCheckpoint) || !p.graph.Contains(prog.LastCheckpointIndex) {
		return fmt.Errorf("%w: last=%d next=%d (waypoints: %d)",
			model.ErrInvalidProgress, prog.LastCheckpointIndex, prog.NextCheckpoint, p.graph.Len())
	}
	return nil
}

// Track updates the progress of a racer at the given position.
// At most one waypoint is captured per call.
func (p *ProgressProcessor) Track(id model.RacerID, pos geom.Vec2) (model.Progress, error) {
	prog, err := p.Get(id)
	if err != nil {
		return prog, err
	}
	target, ok := p.graph.Lookup(prog.NextCheckpoint)
	if !ok {
		return prog, fmt.Errorf("%w: racer %s next=%d",
			model.ErrInvalidProgress, id, prog.NextCheckpoint)
	}
	d := geom.Distance(pos, target.Position)
	if d < p.captureRadius {
		prog.LastCheckpointIndex = target.Index
		if target.Index == 0 {
			prog.LapCount++
			p.log.Debug("lap completed",
				log.String("racer", string(id)),
				log.Int("lap", prog.LapCount))
		}
		next := p.graph.Next(target.Index)
		prog.NextCheckpoint = next.Index
		prog.DistanceToNextCheckpoint = geom.Distance(pos, next.Position)
	} else {
		prog.DistanceToNextCheckpoint = d
	}
	p.Progress[id] = prog
	return prog, nil
}
