package model

import (
	"github.com/gofrs/uuid/v5"
)

type StandingsEntry struct {
	ID       RacerID   `json:"id"`
	Name     string    `json:"name"`
	Kind     RacerKind `json:"kind"`
	Rank     int       `json:"rank"`
	Progress Progress  `json:"progress"`
	Finished bool      `json:"finished"`
	// only set for ai racers
	Command *Command `json:"command,omitempty"`
}

// Standings is the read-only snapshot produced at the end of each tick.
// Entries are in race order.
type Standings struct {
	RaceID    uuid.UUID        `json:"raceId"`
	Track     string           `json:"track"`
	Tick      int              `json:"tick"`
	TotalLaps int              `json:"totalLaps"`
	Entries   []StandingsEntry `json:"entries"`
}

// Entry returns the entry of the given racer
func (s *Standings) Entry(id RacerID) (StandingsEntry, bool) {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return s.Entries[i], true
		}
	}
	return StandingsEntry{}, false
}
