package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// RaceResult is the outcome of a race.
type RaceResult struct {
	RaceID    uuid.UUID         `json:"raceId"`
	Track     string            `json:"track"`
	Laps      int               `json:"laps"`
	Ticks     int               `json:"ticks"`
	TickRate  int               `json:"tickRate"`
	Finished  bool              `json:"finished"` // player finished within the tick limit
	CreatedAt time.Time         `json:"createdAt"`
	Entries   []RaceResultEntry `json:"entries"`
}

type RaceResultEntry struct {
	RacerID  RacerID   `json:"racerId"`
	Name     string    `json:"name"`
	Kind     RacerKind `json:"kind"`
	Frame    string    `json:"frame"`
	Rank     int       `json:"rank"`
	Laps     int       `json:"laps"`
	Finished bool      `json:"finished"`
	// 0 if the racer did not finish
	FinishTick        int     `json:"finishTick"`
	RemainingDistance float64 `json:"remainingDistance"`
}
