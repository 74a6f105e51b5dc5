package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/config"
	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/progress"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/pursuit"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

// SlowZoneFactor scales the top speed of racers inside a speed zone.
const SlowZoneFactor = 0.5

const (
	gridFirstRow = 8.0
	gridRowGap   = 6.0
	gridLane     = 3.0
)

type Session struct {
	cfg         config.RaceConfig
	track       *track.Track
	processor   *processing.Processor
	autopilot   *pursuit.PursuitProcessor
	bikes       map[model.RacerID]*Bike
	racers      []model.RacerSpec
	finishTicks map[model.RacerID]int
	countdown   int
	tick        int
	log         *log.Logger

	processorOpts []processing.ProcessorOption
}

type SessionOption func(s *Session)

// WithProcessorOptions passes additional options to the tick processor.
func WithProcessorOptions(opts ...processing.ProcessorOption) SessionOption {
	return func(s *Session) {
		s.processorOpts = append(s.processorOpts, opts...)
	}
}

// NewSession prepares a race on trk: the player and cfg.AICount ai racers
// are placed on the starting grid behind the start/finish line.
func NewSession(trk *track.Track, cfg config.RaceConfig, opts ...SessionOption) (*Session, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("invalid tick rate %d", cfg.TickRate)
	}
	s := &Session{
		cfg:         cfg,
		track:       trk,
		bikes:       make(map[model.RacerID]*Bike),
		racers:      make([]model.RacerSpec, 0, cfg.AICount+1),
		finishTicks: make(map[model.RacerID]int),
		countdown:   cfg.CountdownTicks,
		log:         log.Default().Named("sim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.CaptureRadius <= 0 {
		s.cfg.CaptureRadius = progress.CaptureRadius
	}
	proc, err := processing.NewProcessor(append([]processing.ProcessorOption{
		processing.WithTrack(trk),
		processing.WithTotalLaps(cfg.Laps),
		processing.WithCaptureRadius(s.cfg.CaptureRadius),
	}, s.processorOpts...)...)
	if err != nil {
		return nil, err
	}
	s.processor = proc
	s.autopilot = pursuit.NewPursuitProcessor(
		pursuit.WithGraph(trk.Graph),
		pursuit.WithCaptureRadius(proc.CaptureRadius()))

	playerFrame, ok := FrameByName(cfg.PlayerFrame)
	if !ok {
		return nil, fmt.Errorf("unknown bike frame %q", cfg.PlayerFrame)
	}
	specs := []model.RacerSpec{{
		ID: "player", Name: cfg.PlayerName, Kind: model.RacerPlayer, Frame: playerFrame.Name,
	}}
	for i := 0; i < cfg.AICount; i++ {
		specs = append(specs, model.RacerSpec{
			ID:    model.RacerID(fmt.Sprintf("ai-%d", i+1)),
			Name:  fmt.Sprintf("Bot %d", i+1),
			Kind:  model.RacerAI,
			Frame: Frames[i%len(Frames)].Name,
		})
	}
	for i, spec := range specs {
		if err := s.addRacer(i, spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) addRacer(slot int, spec model.RacerSpec) error {
	if err := s.processor.AddRacer(spec); err != nil {
		return err
	}
	if spec.Kind == model.RacerPlayer {
		s.autopilot.Reset(spec.ID)
	}
	frame, _ := FrameByName(spec.Frame)
	pos, rot := s.gridSlot(slot)
	s.bikes[spec.ID] = &Bike{
		State:  model.RacerState{ID: spec.ID, Position: pos, Rotation: rot},
		Params: frame.Params(),
	}
	s.racers = append(s.racers, spec)
	return nil
}

// gridSlot places racers in pairs behind waypoint 0, facing along the
// first straight.
func (s *Session) gridSlot(slot int) (geom.Vec2, float64) {
	g := s.track.Graph
	start := g.Start().Position
	dir := g.Next(0).Position.Sub(start).Normalize()
	side := right(dir).Mul(gridLane)
	if slot%2 == 1 {
		side = side.Mul(-1)
	}
	back := dir.Mul(-(gridFirstRow + gridRowGap*float64(slot/2)))
	return start.Add(back).Add(side), Heading(dir)
}

func (s *Session) Processor() *processing.Processor {
	return s.processor
}

func (s *Session) Bike(id model.RacerID) (*Bike, bool) {
	b, ok := s.bikes[id]
	return b, ok
}

// Step advances the session by one tick. It returns true once the player
// has finished.
func (s *Session) Step() (bool, error) {
	s.tick++
	if s.countdown > 0 {
		s.countdown--
		return false, nil
	}
	states := make([]model.RacerState, 0, len(s.racers))
	for _, r := range s.racers {
		states = append(states, s.bikes[r.ID].State)
	}
	standings, err := s.processor.ProcessTick(states)
	if err != nil {
		return false, err
	}
	for _, e := range standings.Entries {
		if _, done := s.finishTicks[e.ID]; e.Finished && !done {
			s.finishTicks[e.ID] = s.tick
			s.log.Info("racer finished",
				log.String("racer", string(e.ID)),
				log.Int("rank", e.Rank),
				log.Int("tick", s.tick))
		}
	}
	if _, done := s.finishTicks["player"]; done {
		return true, nil
	}

	dt := 1.0 / float64(s.cfg.TickRate)
	for _, r := range s.racers {
		bike := s.bikes[r.ID]
		var cmd model.Command
		if r.Kind == model.RacerPlayer {
			if cmd, err = s.autopilot.Steer(r.ID, bike.State); err != nil {
				return false, err
			}
		} else {
			cmd, _ = s.processor.Command(r.ID)
		}
		if _, done := s.finishTicks[r.ID]; done {
			cmd = model.Command{}
		}
		factor := 1.0
		if s.track.InSurface(bike.State.Position, track.SurfaceSpeedZone) {
			factor = SlowZoneFactor
		}
		bike.Step(cmd, dt, factor)
	}
	return false, nil
}

// Run steps the session until the player finishes, the tick limit is
// reached or ctx is done.
func (s *Session) Run(ctx context.Context) (*model.RaceResult, error) {
	for s.tick < s.cfg.MaxTicks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		done, err := s.Step()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return s.Result(), nil
}

// Result summarizes the current state of the race.
func (s *Session) Result() *model.RaceResult {
	ret := &model.RaceResult{
		RaceID:    s.processor.RaceID,
		Track:     s.track.Name,
		Laps:      s.cfg.Laps,
		Ticks:     s.tick,
		TickRate:  s.cfg.TickRate,
		CreatedAt: time.Now().UTC(),
		Entries:   make([]model.RaceResultEntry, 0, len(s.racers)),
	}
	_, ret.Finished = s.finishTicks["player"]
	standings := s.processor.Standings()
	if standings == nil {
		return ret
	}
	for _, e := range standings.Entries {
		spec, _ := lo.Find(s.racers, func(r model.RacerSpec) bool { return r.ID == e.ID })
		ret.Entries = append(ret.Entries, model.RaceResultEntry{
			RacerID:           e.ID,
			Name:              e.Name,
			Kind:              e.Kind,
			Frame:             spec.Frame,
			Rank:              e.Rank,
			Laps:              e.Progress.LapCount,
			Finished:          e.Finished,
			FinishTick:        s.finishTicks[e.ID],
			RemainingDistance: e.Progress.DistanceToNextCheckpoint,
		})
	}
	return ret
}
