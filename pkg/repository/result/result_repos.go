//nolint:whitespace //can't make both the linter and editor happy :(
package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/repository"
)

var ErrNotFound = errors.New("race result not found")

// Create stores the race and all of its entries.
// Callers should pass a transaction to keep both inserts together.
func Create(
	ctx context.Context,
	conn repository.Querier,
	res *model.RaceResult,
) error {
	_, err := conn.Exec(ctx,
		`insert into race (id, track, laps, ticks, tick_rate, finished, created_at)
		 values ($1,$2,$3,$4,$5,$6,$7)`,
		res.RaceID, res.Track, res.Laps, res.Ticks, res.TickRate,
		res.Finished, res.CreatedAt)
	if err != nil {
		return err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		var finishTick *int
		if e.Finished {
			finishTick = &e.FinishTick
		}
		_, err = conn.Exec(ctx,
			`insert into race_result (race_id, racer_id, name, kind, frame, rank,
			  laps, finished, finish_tick, remaining_distance)
			 values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			res.RaceID, string(e.RacerID), e.Name, e.Kind.String(), e.Frame, e.Rank,
			e.Laps, e.Finished, finishTick,
			decimal.NewFromFloat(e.RemainingDistance).Round(3))
		if err != nil {
			return fmt.Errorf("racer %s: %w", e.RacerID, err)
		}
	}
	return nil
}

// DeleteByID removes a race and its entries, returns number of races deleted.
func DeleteByID(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from race where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
) (*model.RaceResult, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", raceSelector), id)
	var item model.RaceResult
	if err := row.Scan(&item.RaceID, &item.Track, &item.Laps, &item.Ticks,
		&item.TickRate, &item.Finished, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entries, err := loadEntries(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	item.Entries = entries
	return &item, nil
}

// LoadByTrack returns the ids of all races on track, newest first.
func LoadByTrack(
	ctx context.Context,
	conn repository.Querier,
	track string,
) ([]uuid.UUID, error) {
	rows, err := conn.Query(ctx,
		"select id from race where track=$1 order by created_at desc", track)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func loadEntries(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
) ([]model.RaceResultEntry, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where race_id=$1 order by rank", entrySelector), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []model.RaceResultEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

// little helpers
const (
	raceSelector = `select id,track,laps,ticks,tick_rate,finished,created_at from race`

	entrySelector = `select racer_id,name,kind,frame,rank,laps,finished,
	 finish_tick,remaining_distance from race_result`
)

func scanEntry(row pgx.Row) (model.RaceResultEntry, error) {
	var (
		e          model.RaceResultEntry
		racerID    string
		kind       string
		finishTick *int
		remaining  decimal.Decimal
	)
	if err := row.Scan(&racerID, &e.Name, &kind, &e.Frame, &e.Rank, &e.Laps,
		&e.Finished, &finishTick, &remaining); err != nil {
		return e, err
	}
	var err error
	if e.Kind, err = model.ParseRacerKind(kind); err != nil {
		return e, err
	}
	e.RacerID = model.RacerID(racerID)
	if finishTick != nil {
		e.FinishTick = *finishTick
	}
	e.RemainingDistance = remaining.InexactFloat64()
	return e, nil
}
