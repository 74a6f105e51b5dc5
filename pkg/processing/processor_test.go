//nolint:thelper,funlen,dupl // ok for tests
package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

func squareTrack(t *testing.T) *track.Track {
	g, err := track.NewGraph([]geom.Vec2{geom.V(0, 0), geom.V(10, 0), geom.V(10, 10), geom.V(0, 10)})
	require.NoError(t, err)
	return &track.Track{Name: "square", Graph: g}
}

func newTestProcessor(t *testing.T, opts ...ProcessorOption) *Processor {
	p, err := NewProcessor(append([]ProcessorOption{WithTrack(squareTrack(t))}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, p.AddRacer(model.RacerSpec{ID: "p", Name: "Player", Kind: model.RacerPlayer}))
	require.NoError(t, p.AddRacer(model.RacerSpec{ID: "a1", Name: "Bot", Kind: model.RacerAI}))
	return p
}

func states(positions map[model.RacerID]geom.Vec2) []model.RacerState {
	ret := make([]model.RacerState, 0, len(positions))
	for id, pos := range positions {
		ret = append(ret, model.RacerState{ID: id, Position: pos})
	}
	return ret
}

func TestNewProcessor_NoTrack(t *testing.T) {
	_, err := NewProcessor()
	assert.ErrorIs(t, err, ErrNoTrack)
}

func TestAddRacer(t *testing.T) {
	p := newTestProcessor(t)
	assert.ErrorIs(t, p.AddRacer(model.RacerSpec{ID: "a1"}), model.ErrDuplicateRacer)
	assert.ErrorIs(t, p.AddRacer(model.RacerSpec{ID: "p2", Kind: model.RacerPlayer}), ErrSecondPlayer)
	assert.Error(t, p.AddRacer(model.RacerSpec{}))
	assert.Len(t, p.Racers(), 2)
	id, ok := p.PlayerID()
	assert.True(t, ok)
	assert.Equal(t, model.RacerID("p"), id)
	assert.False(t, p.RaceID.IsNil())
}

func TestProcessTick_Pipeline(t *testing.T) {
	p := newTestProcessor(t)
	s, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p":  geom.V(1, 1),
		"a1": geom.V(-20, -20),
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Tick)
	assert.Equal(t, "square", s.Track)
	require.Len(t, s.Entries, 2)

	assert.Equal(t, model.RacerID("p"), s.Entries[0].ID)
	assert.Equal(t, 1, s.Entries[0].Rank)
	assert.Equal(t, 1, s.Entries[0].Progress.LapCount)
	assert.Equal(t, 1, s.Entries[0].Progress.NextCheckpoint)
	assert.Nil(t, s.Entries[0].Command)

	assert.Equal(t, model.RacerID("a1"), s.Entries[1].ID)
	assert.Equal(t, 2, s.Entries[1].Rank)
	assert.Equal(t, 0, s.Entries[1].Progress.LapCount)
	require.NotNil(t, s.Entries[1].Command)
	// stalled bot gets full throttle
	assert.Equal(t, 1.0, s.Entries[1].Command.Accel)

	lap, err := p.PlayerLapCount()
	require.NoError(t, err)
	assert.Equal(t, 1, lap)
	rank, ok := p.Rank("a1")
	assert.True(t, ok)
	assert.Equal(t, 2, rank)
	ahead, ok := p.RacerAhead("a1")
	assert.True(t, ok)
	assert.Equal(t, model.RacerID("p"), ahead)
	_, ok = p.Command("a1")
	assert.True(t, ok)
	assert.Same(t, s, p.Standings())
}

func TestProcessTick_SwapVisibleNextTick(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p":  geom.V(1, 1),
		"a1": geom.V(-20, -20),
	}))
	require.NoError(t, err)

	require.NoError(t, p.QueueSwap("p", "a1"))
	s, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p":  geom.V(-20, -20),
		"a1": geom.V(1, 1),
	}))
	require.NoError(t, err)
	assert.Equal(t, model.RacerID("a1"), s.Entries[0].ID)
	assert.Equal(t, 1, s.Entries[0].Progress.LapCount)
	assert.Equal(t, model.RacerID("p"), s.Entries[1].ID)
	assert.Equal(t, 0, s.Entries[1].Progress.LapCount)
}

func TestProcessTick_TransferCopiesProgress(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p":  geom.V(1, 1),
		"a1": geom.V(-20, -20),
	}))
	require.NoError(t, err)

	require.NoError(t, p.QueueTransfer("p", "a1"))
	_, err = p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p":  geom.V(5, 0),
		"a1": geom.V(5, 0),
	}))
	require.NoError(t, err)
	pp, err := p.Progress("p")
	require.NoError(t, err)
	pa, err := p.Progress("a1")
	require.NoError(t, err)
	assert.Equal(t, pp, pa)
}

func TestProcessTick_TransfersAreAtomic(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.AddRacer(model.RacerSpec{ID: "a2", Kind: model.RacerAI}))
	_, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(1, 1), "a1": geom.V(-20, -20), "a2": geom.V(-20, -20),
	}))
	require.NoError(t, err)
	before, err := p.Progress("p")
	require.NoError(t, err)
	require.Equal(t, 1, before.LapCount)
	p.progressProcessor.Progress["a2"] = model.Progress{NextCheckpoint: 99}

	// first transfer is valid, the second one is not: none is applied
	require.NoError(t, p.QueueTransfer("a1", "p"))
	require.NoError(t, p.QueueTransfer("a2", "p"))
	_, err = p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(-20, -20), "a1": geom.V(-20, -20), "a2": geom.V(-20, -20),
	}))
	assert.ErrorIs(t, err, model.ErrInvalidProgress)
	after, err := p.Progress("p")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessTick_FailedTrackRestoresProgress(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.AddRacer(model.RacerSpec{ID: "a2", Kind: model.RacerAI}))
	_, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(1, 1), "a1": geom.V(-20, -20), "a2": geom.V(-20, -20),
	}))
	require.NoError(t, err)
	before, err := p.Progress("p")
	require.NoError(t, err)
	p.progressProcessor.Progress["a2"] = model.Progress{NextCheckpoint: 99}

	// p would capture waypoint 1 before tracking a2 fails
	require.NoError(t, p.QueueTransfer("a1", "p"))
	_, err = p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(10, 0), "a1": geom.V(-20, -20), "a2": geom.V(-20, -20),
	}))
	assert.ErrorIs(t, err, model.ErrInvalidProgress)
	after, err := p.Progress("p")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, p.Tick())

	// the transfer of the failed tick is gone
	p.progressProcessor.Reset("a2")
	_, err = p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(10, 0), "a1": geom.V(-20, -20), "a2": geom.V(-20, -20),
	}))
	require.NoError(t, err)
	got, err := p.Progress("p")
	require.NoError(t, err)
	assert.Equal(t, 1, got.LapCount)
	assert.Equal(t, 1, got.LastCheckpointIndex)
	assert.Equal(t, 2, p.Tick())
}

func TestProcessTick_Errors(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{
		"p": geom.V(0, 0), "a1": geom.V(0, 0), "x": geom.V(0, 0),
	}))
	assert.ErrorIs(t, err, model.ErrUnknownRacer)

	_, err = p.ProcessTick(states(map[model.RacerID]geom.Vec2{"p": geom.V(0, 0)}))
	assert.ErrorIs(t, err, ErrMissingState)

	assert.ErrorIs(t, p.QueueTransfer("p", "x"), model.ErrUnknownRacer)
	assert.ErrorIs(t, p.QueueSwap("x", "p"), model.ErrUnknownRacer)
}

func TestProcessTick_Finish(t *testing.T) {
	p := newTestProcessor(t, WithTotalLaps(1))
	route := []geom.Vec2{geom.V(1, 1), geom.V(10, 0), geom.V(10, 10), geom.V(0, 10), geom.V(0, 0)}
	for i, pos := range route {
		s, err := p.ProcessTick(states(map[model.RacerID]geom.Vec2{"p": pos, "a1": geom.V(-20, -20)}))
		require.NoError(t, err)
		entry, ok := s.Entry("p")
		require.True(t, ok)
		assert.Equal(t, i == len(route)-1, entry.Finished, "step %d", i)
	}
	done, err := p.IsFinished("p")
	require.NoError(t, err)
	assert.True(t, done)
	lap, err := p.PlayerLapCount()
	require.NoError(t, err)
	assert.Equal(t, 2, lap)
}

func TestProcessTick_Publish(t *testing.T) {
	ch := make(chan *model.Standings, 1)
	p := newTestProcessor(t, WithStandingsChannel(ch))
	pos := map[model.RacerID]geom.Vec2{"p": geom.V(-20, -20), "a1": geom.V(-20, -20)}
	s, err := p.ProcessTick(states(pos))
	require.NoError(t, err)
	// channel is full, second standings are dropped
	_, err = p.ProcessTick(states(pos))
	require.NoError(t, err)
	got := <-ch
	assert.Same(t, s, got)
	assert.Empty(t, ch)
}

func TestProcessTick_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p := newTestProcessor(t, WithMeterProvider(mp))
	pos := map[model.RacerID]geom.Vec2{"p": geom.V(-20, -20), "a1": geom.V(-20, -20)}
	for i := 0; i < 3; i++ {
		_, err := p.ProcessTick(states(pos))
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "bre.tick.count":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				require.Len(t, sum.DataPoints, 1)
				assert.Equal(t, int64(3), sum.DataPoints[0].Value)
				found[m.Name] = true
			case "bre.tick.duration":
				hist, ok := m.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				require.Len(t, hist.DataPoints, 1)
				assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
				found[m.Name] = true
			}
		}
	}
	assert.True(t, found["bre.tick.count"])
	assert.True(t, found["bre.tick.duration"])
}
