package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/bikerace-engine/log"
	tcpg "github.com/mpapenbr/bikerace-engine/testsupport/tcpostgres"
)

// SkipWithoutDb skips tests that need a database when running with -short
// or when BRE_SKIP_DB_TESTS is set.
func SkipWithoutDb(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("BRE_SKIP_DB_TESTS") != "" {
		t.Skip("skipping database test")
	}
}

func InitTestDb() *pgxpool.Pool {
	var pool *pgxpool.Pool

	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	if err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		tcpg.ClearAllTables(pool)
		return nil
	}); err != nil {
		log.Fatalf("initTestDb: %v\n", err)
	}
	return pool
}
