// Package natspub publishes race standings to NATS subjects.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
)

const DefaultSubjectPrefix = "standings"

// Conn is the part of *nats.Conn used by the publisher.
type Conn interface {
	Publish(subj string, data []byte) error
	Flush() error
}

var _ Conn = (*nats.Conn)(nil)

type Publisher struct {
	conn   Conn
	prefix string
	every  int
	log    *log.Logger
}

type Option func(p *Publisher)

func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithEvery publishes only every n-th tick.
func WithEvery(n int) Option {
	return func(p *Publisher) {
		p.every = n
	}
}

func New(conn Conn, opts ...Option) *Publisher {
	ret := &Publisher{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		every:  1,
		log:    log.Default().Named("natspub"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Subject is the subject standings of a race are published on.
func (p *Publisher) Subject(s *model.Standings) string {
	return fmt.Sprintf("%s.%s", p.prefix, s.RaceID)
}

func (p *Publisher) Publish(s *model.Standings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(s), data)
}

// Run publishes everything received on ch until ch is closed or ctx is done.
func (p *Publisher) Run(ctx context.Context, ch <-chan *model.Standings) error {
	for {
		select {
		case <-ctx.Done():
			return p.conn.Flush()
		case s, ok := <-ch:
			if !ok {
				return p.conn.Flush()
			}
			if p.every > 1 && s.Tick%p.every != 0 {
				continue
			}
			if err := p.Publish(s); err != nil {
				p.log.Error("error publishing standings",
					log.Int("tick", s.Tick),
					log.ErrorField(err))
			}
		}
	}
}
