//nolint:funlen // ok for tests
package result_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/repository/result"
	base "github.com/mpapenbr/bikerace-engine/testsupport/basedata"
	"github.com/mpapenbr/bikerace-engine/testsupport/testdb"
)

func initTestDb(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testdb.SkipWithoutDb(t)
	return testdb.InitTestDb()
}

func TestCreate(t *testing.T) {
	pool := initTestDb(t)
	base.CreateSampleRace(pool)

	tests := []struct {
		name    string
		res     *model.RaceResult
		wantErr bool
	}{
		{
			name: "new entry",
			res: func() *model.RaceResult {
				r := base.SampleRaceResult()
				r.RaceID = uuid.Must(uuid.NewV4())
				return r
			}(),
		},
		{
			name:    "duplicate",
			res:     base.SampleRaceResult(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
				return result.Create(context.Background(), tx, tt.res)
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Create error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadByID(t *testing.T) {
	pool := initTestDb(t)
	sample := base.CreateSampleRace(pool)

	got, err := result.LoadByID(context.Background(), pool, sample.RaceID)
	require.NoError(t, err)
	if diff := cmp.Diff(sample.Entries, got.Entries); diff != "" {
		t.Errorf("LoadByID() entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, sample.Track, got.Track)
	assert.Equal(t, sample.Ticks, got.Ticks)
	assert.True(t, sample.CreatedAt.Equal(got.CreatedAt))

	_, err = result.LoadByID(context.Background(), pool, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, result.ErrNotFound)
}

func TestLoadByTrack(t *testing.T) {
	pool := initTestDb(t)
	sample := base.CreateSampleRace(pool)

	ids, err := result.LoadByTrack(context.Background(), pool, "Pool")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sample.RaceID}, ids)

	ids, err = result.LoadByTrack(context.Background(), pool, "Milky Way")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteByID(t *testing.T) {
	pool := initTestDb(t)
	sample := base.CreateSampleRace(pool)

	n, err := result.DeleteByID(context.Background(), pool, sample.RaceID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int
	require.NoError(t, pool.QueryRow(context.Background(),
		"select count(*) from race_result where race_id=$1", sample.RaceID).Scan(&count))
	assert.Equal(t, 0, count)

	n, err = result.DeleteByID(context.Background(), pool, sample.RaceID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
