//nolint:thelper // ok for tests
package natspub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/bikerace-engine/pkg/model"
)

type recordingConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	flushed  int
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *recordingConn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed++
	return nil
}

func TestPublish(t *testing.T) {
	conn := &recordingConn{}
	p := New(conn, WithSubjectPrefix("bre.standings"))
	id := uuid.Must(uuid.FromString("7f4b4a3e-8a52-4f7b-9d0b-0e4c2a9b1c11"))
	s := &model.Standings{
		RaceID: id,
		Track:  "Pool",
		Tick:   7,
		Entries: []model.StandingsEntry{
			{ID: "player", Rank: 1, Progress: model.Progress{LapCount: 1, NextCheckpoint: 2}},
		},
	}
	require.NoError(t, p.Publish(s))
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "bre.standings.7f4b4a3e-8a52-4f7b-9d0b-0e4c2a9b1c11", conn.subjects[0])

	var got model.Standings
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, *s, got)
}

func TestRun(t *testing.T) {
	conn := &recordingConn{}
	p := New(conn, WithEvery(2))
	ch := make(chan *model.Standings)
	done := make(chan error)
	go func() { done <- p.Run(context.Background(), ch) }()
	for tick := 1; tick <= 5; tick++ {
		ch <- &model.Standings{Tick: tick}
	}
	close(ch)
	require.NoError(t, <-done)
	assert.Len(t, conn.subjects, 2)
	assert.Equal(t, 1, conn.flushed)
}
