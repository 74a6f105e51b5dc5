//nolint:thelper,funlen // ok for tests
package race

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/progress"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

func newProcessors(t *testing.T, snapshot map[model.RacerID]model.Progress) (
	*progress.ProgressProcessor, *RaceProcessor,
) {
	g, err := track.NewGraph([]geom.Vec2{
		geom.V(0, 0), geom.V(10, 0), geom.V(10, 10), geom.V(0, 10), geom.V(-5, 5),
	})
	require.NoError(t, err)
	pp := progress.NewProgressProcessor(progress.WithGraph(g))
	for id, prog := range snapshot {
		pp.Reset(id)
		require.NoError(t, pp.Set(id, prog))
	}
	return pp, NewRaceProcessor(WithProgressProcessor(pp), WithTotalLaps(3))
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name     string
		snapshot map[model.RacerID]model.Progress
		want     []model.RacerID
	}{
		{
			name: "closer to next checkpoint wins",
			snapshot: map[model.RacerID]model.Progress{
				"b": {LapCount: 2, LastCheckpointIndex: 3, DistanceToNextCheckpoint: 2.0},
				"a": {LapCount: 2, LastCheckpointIndex: 3, DistanceToNextCheckpoint: 1.0},
			},
			want: []model.RacerID{"a", "b"},
		},
		{
			name: "lap beats checkpoint and distance",
			snapshot: map[model.RacerID]model.Progress{
				"a": {LapCount: 1, LastCheckpointIndex: 4, DistanceToNextCheckpoint: 0.1},
				"b": {LapCount: 2, LastCheckpointIndex: 0, DistanceToNextCheckpoint: 99},
			},
			want: []model.RacerID{"b", "a"},
		},
		{
			name: "checkpoint beats distance",
			snapshot: map[model.RacerID]model.Progress{
				"a": {LapCount: 1, LastCheckpointIndex: 1, DistanceToNextCheckpoint: 0.1},
				"b": {LapCount: 1, LastCheckpointIndex: 2, DistanceToNextCheckpoint: 9},
			},
			want: []model.RacerID{"b", "a"},
		},
		{
			name: "exact tie broken by id",
			snapshot: map[model.RacerID]model.Progress{
				"c": {LapCount: 1, LastCheckpointIndex: 1, DistanceToNextCheckpoint: 3},
				"a": {LapCount: 1, LastCheckpointIndex: 1, DistanceToNextCheckpoint: 3},
				"b": {LapCount: 1, LastCheckpointIndex: 1, DistanceToNextCheckpoint: 3},
			},
			want: []model.RacerID{"a", "b", "c"},
		},
		{
			name:     "empty",
			snapshot: map[model.RacerID]model.Progress{},
			want:     []model.RacerID{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Order(tt.snapshot)); diff != "" {
				t.Errorf("Order() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRank_Bijection(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for run := 0; run < 50; run++ {
		snapshot := make(map[model.RacerID]model.Progress)
		n := 1 + r.IntN(12)
		for i := 0; i < n; i++ {
			snapshot[model.RacerID(fmt.Sprintf("r%02d", i))] = model.Progress{
				LapCount:                 r.IntN(3),
				LastCheckpointIndex:      r.IntN(5),
				DistanceToNextCheckpoint: float64(r.IntN(4)),
				NextCheckpoint:           r.IntN(5),
			}
		}
		_, rp := newProcessors(t, snapshot)
		rp.Rank()

		seen := make(map[int]bool)
		for id, rank := range rp.Ranks {
			assert.GreaterOrEqual(t, rank, 1)
			assert.LessOrEqual(t, rank, n)
			assert.False(t, seen[rank], "rank %d assigned twice", rank)
			seen[rank] = true
			assert.Equal(t, id, rp.RaceOrder[rank-1])
		}
		assert.Len(t, seen, n)

		for a, pa := range snapshot {
			for b, pb := range snapshot {
				if pa.LapCount > pb.LapCount {
					assert.Less(t, rp.Ranks[a], rp.Ranks[b])
				}
			}
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	snapshot := map[model.RacerID]model.Progress{
		"x": {LapCount: 1, LastCheckpointIndex: 2, DistanceToNextCheckpoint: 1},
		"y": {LapCount: 1, LastCheckpointIndex: 2, DistanceToNextCheckpoint: 1},
		"z": {LapCount: 1, LastCheckpointIndex: 2, DistanceToNextCheckpoint: 1},
	}
	_, rp := newProcessors(t, snapshot)
	first := rp.Rank()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, rp.Rank())
	}
}

func TestTransferProgress(t *testing.T) {
	pp, rp := newProcessors(t, map[model.RacerID]model.Progress{
		"leader":  {LapCount: 2, LastCheckpointIndex: 3, DistanceToNextCheckpoint: 1, NextCheckpoint: 4},
		"mid":     {LapCount: 2, LastCheckpointIndex: 1, DistanceToNextCheckpoint: 4, NextCheckpoint: 2},
		"trailer": {LapCount: 1, LastCheckpointIndex: 4, DistanceToNextCheckpoint: 2, NextCheckpoint: 0},
	})
	rp.Rank()
	ahead, ok := rp.RacerAhead("trailer")
	require.True(t, ok)
	assert.Equal(t, model.RacerID("mid"), ahead)

	// hook: the firing racer takes over the progress of the racer ahead
	require.NoError(t, rp.TransferProgress(ahead, "trailer"))
	assert.Equal(t, pp.Progress["mid"], pp.Progress["trailer"])
	rp.Rank()
	// identical records, tie broken by id
	assert.Equal(t, []model.RacerID{"leader", "mid", "trailer"}, rp.RaceOrder)
}

func TestSwapProgress(t *testing.T) {
	leader := model.Progress{LapCount: 2, LastCheckpointIndex: 3, DistanceToNextCheckpoint: 1, NextCheckpoint: 4}
	trailer := model.Progress{LapCount: 1, LastCheckpointIndex: 4, DistanceToNextCheckpoint: 2, NextCheckpoint: 0}
	pp, rp := newProcessors(t, map[model.RacerID]model.Progress{"x": leader, "y": trailer})
	rp.Rank()
	assert.Equal(t, 1, rp.Ranks["x"])

	require.NoError(t, rp.SwapProgress("x", "y"))
	assert.Equal(t, trailer, pp.Progress["x"])
	assert.Equal(t, leader, pp.Progress["y"])
	rp.Rank()
	assert.Equal(t, 2, rp.Ranks["x"])
	assert.Equal(t, 1, rp.Ranks["y"])
}

func TestTransfer_Errors(t *testing.T) {
	pp, rp := newProcessors(t, map[model.RacerID]model.Progress{"a": {}, "b": {}})
	assert.ErrorIs(t, rp.TransferProgress("a", "nope"), model.ErrUnknownRacer)
	assert.ErrorIs(t, rp.TransferProgress("nope", "a"), model.ErrUnknownRacer)
	assert.ErrorIs(t, rp.SwapProgress("a", "nope"), model.ErrUnknownRacer)

	pp.Progress["a"] = model.Progress{NextCheckpoint: 42}
	assert.ErrorIs(t, rp.TransferProgress("a", "b"), model.ErrInvalidProgress)
	assert.ErrorIs(t, rp.SwapProgress("a", "b"), model.ErrInvalidProgress)
	// nothing written on failure
	assert.Equal(t, model.Progress{}, pp.Progress["b"])
}

func TestRacerAheadBehind(t *testing.T) {
	_, rp := newProcessors(t, map[model.RacerID]model.Progress{
		"a": {LapCount: 3},
		"b": {LapCount: 2},
		"c": {LapCount: 1},
	})
	rp.Rank()
	tests := []struct {
		id         model.RacerID
		wantAhead  model.RacerID
		wantBehind model.RacerID
	}{
		{id: "a", wantAhead: "", wantBehind: "b"},
		{id: "b", wantAhead: "a", wantBehind: "c"},
		{id: "c", wantAhead: "b", wantBehind: ""},
		{id: "unknown", wantAhead: "", wantBehind: ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			ahead, ok := rp.RacerAhead(tt.id)
			assert.Equal(t, tt.wantAhead != "", ok)
			assert.Equal(t, tt.wantAhead, ahead)
			behind, ok := rp.RacerBehind(tt.id)
			assert.Equal(t, tt.wantBehind != "", ok)
			assert.Equal(t, tt.wantBehind, behind)
		})
	}
}

func TestFinished(t *testing.T) {
	_, rp := newProcessors(t, map[model.RacerID]model.Progress{
		"done":    {LapCount: 4},
		"running": {LapCount: 3},
	})
	done, err := rp.Finished("done")
	require.NoError(t, err)
	assert.True(t, done)
	done, err = rp.Finished("running")
	require.NoError(t, err)
	assert.False(t, done)
	_, err = rp.Finished("nope")
	assert.ErrorIs(t, err, model.ErrUnknownRacer)

	laps, err := rp.LapCount("running")
	require.NoError(t, err)
	assert.Equal(t, 3, laps)
	assert.Equal(t, 3, rp.TotalLaps())
}

func TestFinishMessage(t *testing.T) {
	assert.Equal(t, "You won!", FinishMessage(1))
	assert.Equal(t, "You came in second!", FinishMessage(2))
	assert.Equal(t, "You came in third!", FinishMessage(3))
	assert.Equal(t, "You finished in position 5", FinishMessage(5))
}
