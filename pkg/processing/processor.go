package processing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/progress"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/pursuit"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/race"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

var (
	ErrNoTrack      = errors.New("processor needs a track")
	ErrMissingState = errors.New("no state reported for racer")
	ErrSecondPlayer = errors.New("only one player racer is supported")
)

type transferKind int

const (
	transferCopy transferKind = iota
	transferSwap
)

type transfer struct {
	kind     transferKind
	from, to model.RacerID
}

// Processor runs the per tick pipeline of a race:
// pending transfers, progress for all racers, ranking, ai steering.
type Processor struct {
	RaceID            uuid.UUID
	trackName         string
	graph             *track.Graph
	totalLaps         int
	captureRadius     float64
	racers            []model.RacerSpec
	byID              map[model.RacerID]model.RacerSpec
	playerID          model.RacerID
	progressProcessor *progress.ProgressProcessor
	raceProcessor     *race.RaceProcessor
	pursuitProcessor  *pursuit.PursuitProcessor
	pending           []transfer
	commands          map[model.RacerID]model.Command
	tick              int
	latest            *model.Standings
	standingsChan     chan<- *model.Standings
	meterProvider     metric.MeterProvider
	tickDuration      metric.Float64Histogram
	tickCount         metric.Int64Counter
	log               *log.Logger
}

type ProcessorOption func(proc *Processor)

func WithTrack(t *track.Track) ProcessorOption {
	return func(proc *Processor) {
		proc.graph = t.Graph
		proc.trackName = t.Name
	}
}

func WithGraph(g *track.Graph) ProcessorOption {
	return func(proc *Processor) {
		proc.graph = g
	}
}

func WithTotalLaps(laps int) ProcessorOption {
	return func(proc *Processor) {
		proc.totalLaps = laps
	}
}

func WithCaptureRadius(r float64) ProcessorOption {
	return func(proc *Processor) {
		proc.captureRadius = r
	}
}

func WithRaceID(id uuid.UUID) ProcessorOption {
	return func(proc *Processor) {
		proc.RaceID = id
	}
}

// WithStandingsChannel publishes the standings of each tick to ch.
// Standings are dropped if ch is not ready.
func WithStandingsChannel(ch chan<- *model.Standings) ProcessorOption {
	return func(proc *Processor) {
		proc.standingsChan = ch
	}
}

func WithMeterProvider(mp metric.MeterProvider) ProcessorOption {
	return func(proc *Processor) {
		proc.meterProvider = mp
	}
}

func NewProcessor(opts ...ProcessorOption) (*Processor, error) {
	ret := &Processor{
		totalLaps:     3,
		captureRadius: progress.CaptureRadius,
		racers:        make([]model.RacerSpec, 0),
		byID:          make(map[model.RacerID]model.RacerSpec),
		pending:       make([]transfer, 0),
		commands:      make(map[model.RacerID]model.Command),
		log:           log.Default().Named("processing"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.graph == nil {
		return nil, ErrNoTrack
	}
	if ret.RaceID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		ret.RaceID = id
	}
	ret.progressProcessor = progress.NewProgressProcessor(
		progress.WithGraph(ret.graph),
		progress.WithCaptureRadius(ret.captureRadius),
	)
	ret.raceProcessor = race.NewRaceProcessor(
		race.WithProgressProcessor(ret.progressProcessor),
		race.WithTotalLaps(ret.totalLaps),
	)
	ret.pursuitProcessor = pursuit.NewPursuitProcessor(
		pursuit.WithGraph(ret.graph),
		pursuit.WithCaptureRadius(ret.captureRadius),
	)
	if err := ret.setupMetrics(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (p *Processor) setupMetrics() error {
	mp := p.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("bre.processing")
	var err error
	if p.tickDuration, err = meter.Float64Histogram(
		"bre.tick.duration",
		metric.WithDescription("Duration of a processed tick"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}
	if p.tickCount, err = meter.Int64Counter(
		"bre.tick.count",
		metric.WithDescription("Number of processed ticks"),
		metric.WithUnit("{count}"),
	); err != nil {
		return err
	}
	return nil
}

// AddRacer registers a racer and puts it at the start.
func (p *Processor) AddRacer(spec model.RacerSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("%w: empty id", model.ErrUnknownRacer)
	}
	if _, ok := p.byID[spec.ID]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateRacer, spec.ID)
	}
	if spec.Kind == model.RacerPlayer {
		if p.playerID != "" {
			return fmt.Errorf("%w: %s is already the player", ErrSecondPlayer, p.playerID)
		}
		p.playerID = spec.ID
	}
	p.racers = append(p.racers, spec)
	p.byID[spec.ID] = spec
	p.progressProcessor.Reset(spec.ID)
	if spec.Kind == model.RacerAI {
		p.pursuitProcessor.Reset(spec.ID)
	}
	p.log.Debug("racer added",
		log.String("id", string(spec.ID)),
		log.String("kind", spec.Kind.String()))
	return nil
}

// QueueTransfer schedules overwriting the progress of to with the progress
// of from. Queued transfers are applied at the start of the next tick.
func (p *Processor) QueueTransfer(from, to model.RacerID) error {
	return p.queue(transfer{kind: transferCopy, from: from, to: to})
}

// QueueSwap schedules exchanging the progress of a and b.
func (p *Processor) QueueSwap(a, b model.RacerID) error {
	return p.queue(transfer{kind: transferSwap, from: a, to: b})
}

func (p *Processor) queue(t transfer) error {
	for _, id := range []model.RacerID{t.from, t.to} {
		if _, ok := p.byID[id]; !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownRacer, id)
		}
	}
	p.pending = append(p.pending, t)
	return nil
}

// applyTransfers applies all pending transfers or none of them.
func (p *Processor) applyTransfers() error {
	if len(p.pending) == 0 {
		return nil
	}
	defer func() { p.pending = p.pending[:0] }()
	backup := maps.Clone(p.progressProcessor.Progress)
	for _, t := range p.pending {
		var err error
		switch t.kind {
		case transferCopy:
			err = p.raceProcessor.TransferProgress(t.from, t.to)
		case transferSwap:
			err = p.raceProcessor.SwapProgress(t.from, t.to)
		}
		if err != nil {
			p.progressProcessor.Progress = backup
			return err
		}
	}
	return nil
}

// ProcessTick runs one simulation step on the states reported by the
// physics side. Every registered racer must be present in states.
// A failed tick is not counted and leaves the progress of all racers as it
// was before the call. Transfers queued for that tick are discarded.
//
//nolint:funlen // pipeline
func (p *Processor) ProcessTick(states []model.RacerState) (*model.Standings, error) {
	start := time.Now()
	byID := make(map[model.RacerID]model.RacerState, len(states))
	for _, s := range states {
		if _, ok := p.byID[s.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownRacer, s.ID)
		}
		byID[s.ID] = s
	}
	for _, r := range p.racers {
		if _, ok := byID[r.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingState, r.ID)
		}
	}

	before := maps.Clone(p.progressProcessor.Progress)
	if err := p.applyTransfers(); err != nil {
		return nil, err
	}
	for _, r := range p.racers {
		if _, err := p.progressProcessor.Track(r.ID, byID[r.ID].Position); err != nil {
			p.progressProcessor.Progress = before
			return nil, err
		}
	}
	p.raceProcessor.Rank()
	for _, r := range p.racers {
		if r.Kind != model.RacerAI {
			continue
		}
		cmd, err := p.pursuitProcessor.Steer(r.ID, byID[r.ID])
		if err != nil {
			return nil, err
		}
		p.commands[r.ID] = cmd
	}

	p.tick++
	p.latest = p.composeStandings()
	p.publish(p.latest)

	attrs := metric.WithAttributes(attribute.String("track", p.trackName))
	p.tickDuration.Record(context.Background(), time.Since(start).Seconds(), attrs)
	p.tickCount.Add(context.Background(), 1, attrs)
	return p.latest, nil
}

func (p *Processor) composeStandings() *model.Standings {
	ret := &model.Standings{
		RaceID:    p.RaceID,
		Track:     p.trackName,
		Tick:      p.tick,
		TotalLaps: p.totalLaps,
		Entries:   make([]model.StandingsEntry, 0, len(p.racers)),
	}
	for _, id := range p.raceProcessor.RaceOrder {
		spec := p.byID[id]
		prog := p.progressProcessor.Progress[id]
		entry := model.StandingsEntry{
			ID:       id,
			Name:     spec.Name,
			Kind:     spec.Kind,
			Rank:     p.raceProcessor.Ranks[id],
			Progress: prog,
			Finished: prog.LapCount > p.totalLaps,
		}
		if cmd, ok := p.commands[id]; ok {
			entry.Command = &cmd
		}
		ret.Entries = append(ret.Entries, entry)
	}
	return ret
}

func (p *Processor) publish(s *model.Standings) {
	if p.standingsChan == nil {
		return
	}
	select {
	case p.standingsChan <- s:
	default:
		p.log.Debug("standings dropped", log.Int("tick", s.Tick))
	}
}

// Command returns the latest command computed for an ai racer.
func (p *Processor) Command(id model.RacerID) (model.Command, bool) {
	cmd, ok := p.commands[id]
	return cmd, ok
}

func (p *Processor) Standings() *model.Standings {
	return p.latest
}

func (p *Processor) Racers() []model.RacerSpec {
	ret := make([]model.RacerSpec, len(p.racers))
	copy(ret, p.racers)
	return ret
}

func (p *Processor) Graph() *track.Graph {
	return p.graph
}

func (p *Processor) TotalLaps() int {
	return p.totalLaps
}

func (p *Processor) CaptureRadius() float64 {
	return p.captureRadius
}

func (p *Processor) Tick() int {
	return p.tick
}

func (p *Processor) PlayerID() (model.RacerID, bool) {
	return p.playerID, p.playerID != ""
}

// PlayerLapCount exposes the lap count of the player for the finish decision.
func (p *Processor) PlayerLapCount() (int, error) {
	if p.playerID == "" {
		return 0, fmt.Errorf("%w: no player registered", model.ErrUnknownRacer)
	}
	return p.raceProcessor.LapCount(p.playerID)
}

func (p *Processor) IsFinished(id model.RacerID) (bool, error) {
	return p.raceProcessor.Finished(id)
}

func (p *Processor) Progress(id model.RacerID) (model.Progress, error) {
	return p.progressProcessor.Get(id)
}

func (p *Processor) Rank(id model.RacerID) (int, bool) {
	return p.raceProcessor.RankOf(id)
}

func (p *Processor) RacerAhead(id model.RacerID) (model.RacerID, bool) {
	return p.raceProcessor.RacerAhead(id)
}

func (p *Processor) RacerBehind(id model.RacerID) (model.RacerID, bool) {
	return p.raceProcessor.RacerBehind(id)
}
