package race

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/progress"
)

type RaceProcessor struct {
	RaceOrder         []model.RacerID
	Ranks             map[model.RacerID]int
	progressProcessor *progress.ProgressProcessor
	totalLaps         int
	log               *log.Logger
}

type RaceProcessorOption func(rp *RaceProcessor)

func WithProgressProcessor(pp *progress.ProgressProcessor) RaceProcessorOption {
	return func(rp *RaceProcessor) {
		rp.progressProcessor = pp
	}
}

func WithTotalLaps(laps int) RaceProcessorOption {
	return func(rp *RaceProcessor) {
		rp.totalLaps = laps
	}
}

func NewRaceProcessor(opts ...RaceProcessorOption) *RaceProcessor {
	ret := &RaceProcessor{
		RaceOrder: make([]model.RacerID, 0),
		Ranks:     make(map[model.RacerID]int),
		log:       log.Default().Named("processing.race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Order sorts the racers of the snapshot into race order.
// Keys: lap desc, last checkpoint desc, distance to next checkpoint asc.
// Exact ties are broken by racer id.
func Order(snapshot map[model.RacerID]model.Progress) []model.RacerID {
	ret := make([]model.RacerID, 0, len(snapshot))
	for id := range snapshot {
		ret = append(ret, id)
	}
	slices.SortFunc(ret, func(a, b model.RacerID) int {
		pa, pb := snapshot[a], snapshot[b]
		return cmp.Or(
			cmp.Compare(pb.LapCount, pa.LapCount),
			cmp.Compare(pb.LastCheckpointIndex, pa.LastCheckpointIndex),
			cmp.Compare(pa.DistanceToNextCheckpoint, pb.DistanceToNextCheckpoint),
			cmp.Compare(a, b),
		)
	})
	return ret
}

// Rank recomputes the race order from the current progress of all racers.
func (p *RaceProcessor) Rank() []model.RacerID {
	order := Order(p.progressProcessor.Progress)
	ranks := make(map[model.RacerID]int, len(order))
	for i, id := range order {
		ranks[id] = i + 1
	}
	p.RaceOrder = order
	p.Ranks = ranks
	return order
}

func (p *RaceProcessor) RankOf(id model.RacerID) (int, bool) {
	r, ok := p.Ranks[id]
	return r, ok
}

// TransferProgress overwrites the progress of racer to with a copy of the
// progress of racer from.
func (p *RaceProcessor) TransferProgress(from, to model.RacerID) error {
	src, err := p.progressProcessor.Get(from)
	if err != nil {
		return err
	}
	if _, err := p.progressProcessor.Get(to); err != nil {
		return err
	}
	if err := p.progressProcessor.Set(to, src); err != nil {
		return fmt.Errorf("transfer %s -> %s: %w", from, to, err)
	}
	p.log.Debug("progress transferred",
		log.String("from", string(from)),
		log.String("to", string(to)))
	return nil
}

// SwapProgress exchanges the progress records of two racers.
func (p *RaceProcessor) SwapProgress(a, b model.RacerID) error {
	pa, err := p.progressProcessor.Get(a)
	if err != nil {
		return err
	}
	pb, err := p.progressProcessor.Get(b)
	if err != nil {
		return err
	}
	if err := p.progressProcessor.Check(pa); err != nil {
		return fmt.Errorf("swap %s <-> %s: %w", a, b, err)
	}
	if err := p.progressProcessor.Check(pb); err != nil {
		return fmt.Errorf("swap %s <-> %s: %w", a, b, err)
	}
	p.progressProcessor.Progress[a] = pb
	p.progressProcessor.Progress[b] = pa
	return nil
}

// RacerAhead returns the racer ranked directly in front of id.
func (p *RaceProcessor) RacerAhead(id model.RacerID) (model.RacerID, bool) {
	return p.racerAt(id, -1)
}

// RacerBehind returns the racer ranked directly behind id.
func (p *RaceProcessor) RacerBehind(id model.RacerID) (model.RacerID, bool) {
	return p.racerAt(id, 1)
}

func (p *RaceProcessor) racerAt(id model.RacerID, offset int) (model.RacerID, bool) {
	r, ok := p.Ranks[id]
	if !ok {
		return "", false
	}
	idx := r - 1 + offset
	if idx < 0 || idx >= len(p.RaceOrder) {
		return "", false
	}
	return p.RaceOrder[idx], true
}

func (p *RaceProcessor) LapCount(id model.RacerID) (int, error) {
	prog, err := p.progressProcessor.Get(id)
	if err != nil {
		return 0, err
	}
	return prog.LapCount, nil
}

func (p *RaceProcessor) TotalLaps() int {
	return p.totalLaps
}

// Finished reports whether the racer has completed all laps.
func (p *RaceProcessor) Finished(id model.RacerID) (bool, error) {
	laps, err := p.LapCount(id)
	if err != nil {
		return false, err
	}
	return laps > p.totalLaps, nil
}

// FinishMessage is the text shown to a racer finishing at the given rank.
func FinishMessage(rank int) string {
	switch rank {
	case 1:
		return "You won!"
	case 2:
		return "You came in second!"
	case 3:
		return "You came in third!"
	default:
		return fmt.Sprintf("You finished in position %d", rank)
	}
}
