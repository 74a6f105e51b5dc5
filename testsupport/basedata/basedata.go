package basedata

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	resultrepos "github.com/mpapenbr/bikerace-engine/pkg/repository/result"
)

var SampleRaceID = uuid.Must(uuid.FromString("3b0c1f7e-5d6a-4c59-9f43-2a1f0e7b6d21"))

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleRaceResult() *model.RaceResult {
	return &model.RaceResult{
		RaceID:    SampleRaceID,
		Track:     "Pool",
		Laps:      3,
		Ticks:     5400,
		TickRate:  60,
		Finished:  true,
		CreatedAt: TestTime(),
		Entries: []model.RaceResultEntry{
			{
				RacerID:    "player",
				Name:       "Player",
				Kind:       model.RacerPlayer,
				Frame:      "Fast",
				Rank:       1,
				Laps:       4,
				Finished:   true,
				FinishTick: 5400,
			},
			{
				RacerID:           "ai-1",
				Name:              "Bot 1",
				Kind:              model.RacerAI,
				Frame:             "Banana",
				Rank:              2,
				Laps:              3,
				RemainingDistance: 12.345,
			},
		},
	}
}

func CreateSampleRace(db *pgxpool.Pool) *model.RaceResult {
	ctx := context.Background()
	sample := SampleRaceResult()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return resultrepos.Create(ctx, tx, sample)
	})
	if err != nil {
		log.Fatalf("createSampleRace: %v\n", err)
	}
	return sample
}
