package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/config"
	"github.com/mpapenbr/bikerace-engine/pkg/db/postgres"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
	"github.com/mpapenbr/bikerace-engine/pkg/processing"
	"github.com/mpapenbr/bikerace-engine/pkg/processing/race"
	"github.com/mpapenbr/bikerace-engine/pkg/publish/natspub"
	resultrepos "github.com/mpapenbr/bikerace-engine/pkg/repository/result"
	"github.com/mpapenbr/bikerace-engine/pkg/sim"
	"github.com/mpapenbr/bikerace-engine/pkg/track"
	"github.com/mpapenbr/bikerace-engine/pkg/utils"
	"github.com/mpapenbr/bikerace-engine/pkg/utils/broadcast"
	"github.com/mpapenbr/bikerace-engine/pkg/utils/cache"
	"github.com/mpapenbr/bikerace-engine/pkg/utils/cache/loadercache"
)

type simConfig struct {
	race             config.RaceConfig
	countdownSeconds float64
	storeResults     bool
	dbMaxConns       int32
	natsSubject      string
	publishEvery     int
	logEvery         int
	repeat           int
}

var simCfg = simConfig{race: config.DefaultRaceConfig()}

//nolint:funlen // flag definitions
func NewSimulateCmd() *cobra.Command {
	defaults := config.DefaultRaceConfig()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "runs a headless race",
		RunE: func(cmd *cobra.Command, args []string) error {
			simCfg.race.CountdownTicks = int(simCfg.countdownSeconds *
				float64(simCfg.race.TickRate))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSimulation(ctx, &simCfg)
		},
	}
	cmd.Flags().StringVarP(&simCfg.race.Track,
		"track", "t", defaults.Track,
		"name of an embedded track or path to an svg file")
	cmd.Flags().Float64Var(&simCfg.race.TrackScale,
		"scale", defaults.TrackScale,
		"scale applied to svg coordinates")
	cmd.Flags().IntVarP(&simCfg.race.Laps,
		"laps", "l", defaults.Laps,
		"number of laps")
	cmd.Flags().IntVar(&simCfg.race.AICount,
		"ai", defaults.AICount,
		"number of ai racers")
	cmd.Flags().StringVar(&simCfg.race.PlayerName,
		"player-name", defaults.PlayerName,
		"name of the player")
	cmd.Flags().StringVar(&simCfg.race.PlayerFrame,
		"frame", defaults.PlayerFrame,
		"bike frame of the player (Fast, Princess, Banana, Flames)")
	cmd.Flags().BoolVar(&simCfg.race.IsCup,
		"cup", defaults.IsCup,
		"continue with the next track of the cup after the player finished")
	cmd.Flags().IntVar(&simCfg.race.TickRate,
		"tick-rate", defaults.TickRate,
		"simulation ticks per second")
	cmd.Flags().IntVar(&simCfg.race.MaxTicks,
		"max-ticks", defaults.MaxTicks,
		"abort a race after this number of ticks")
	cmd.Flags().Float64Var(&simCfg.countdownSeconds,
		"countdown", 5,
		"countdown in seconds before racers are released")
	cmd.Flags().Float64Var(&simCfg.race.CaptureRadius,
		"capture-radius", defaults.CaptureRadius,
		"distance at which a waypoint counts as reached")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url", "",
		"publish standings to this NATS server (disabled if empty)")
	cmd.Flags().StringVar(&simCfg.natsSubject,
		"nats-subject", natspub.DefaultSubjectPrefix,
		"subject prefix for published standings")
	cmd.Flags().IntVar(&simCfg.publishEvery,
		"publish-every", 1,
		"publish standings every n-th tick")
	cmd.Flags().IntVar(&simCfg.logEvery,
		"log-every", 60,
		"log standings every n-th tick")
	cmd.Flags().IntVar(&simCfg.repeat,
		"repeat", 1,
		"run the race (or cup) this many times")
	cmd.Flags().BoolVar(&simCfg.storeResults,
		"store-results", false,
		"store race results in the database (see --db)")
	cmd.Flags().Int32Var(&simCfg.dbMaxConns,
		"db-max-conns", 0,
		"maximum size of the database connection pool (0: pgx default)")
	return cmd
}

type trackKey struct {
	name  string
	scale float64
}

type runner struct {
	cfg    *simConfig
	log    *log.Logger
	nc     *nats.Conn
	pool   *pgxpool.Pool
	waitTo time.Duration
	tracks cache.Cache[trackKey, track.Track]
}

func newRunner(cfg *simConfig) *runner {
	return &runner{
		cfg: cfg,
		log: log.Default().Named("simulate"),
		tracks: loadercache.New(
			loadercache.WithExpiration[trackKey, track.Track](0),
			loadercache.WithLoader[trackKey, track.Track](
				func(_ context.Context, k trackKey) (*track.Track, error) {
					return track.Load(k.name, track.WithScale(k.scale))
				}),
		),
	}
}

//nolint:funlen // by design
func runSimulation(ctx context.Context, cfg *simConfig) error {
	r := newRunner(cfg)
	var err error
	if r.waitTo, err = time.ParseDuration(config.WaitForServices); err != nil {
		log.Warn("Invalid duration value. Setting default 15s", log.ErrorField(err))
		r.waitTo = 15 * time.Second
	}

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		telemetry, err := config.SetupTelemetry(ctx)
		if err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		} else {
			defer func() {
				if err := telemetry.Shutdown(context.Background()); err != nil {
					log.Warn("telemetry shutdown", log.ErrorField(err))
				}
			}()
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	if config.NatsURL != "" {
		if r.nc, err = r.connectNats(); err != nil {
			return err
		}
		defer r.nc.Close()
	}
	if cfg.storeResults {
		if r.pool, err = r.openDB(ctx); err != nil {
			return err
		}
		defer r.pool.Close()
	}

	for i := range max(cfg.repeat, 1) {
		if cfg.repeat > 1 {
			r.log.Info("Starting run", log.Int("run", i+1), log.Int("of", cfg.repeat))
		}
		if err := r.runCup(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runCup runs the configured race. In cup mode it continues with the next
// catalog track as long as the player finishes.
func (r *runner) runCup(ctx context.Context) error {
	trackName := r.cfg.race.Track
	for {
		res, err := r.runRace(ctx, trackName)
		if err != nil {
			return err
		}
		if !r.cfg.race.IsCup || !res.Finished || !track.IsEmbedded(trackName) {
			return nil
		}
		next, ok := track.NextInCup(trackName)
		if !ok {
			r.log.Info("Cup finished")
			return nil
		}
		trackName = next
	}
}

func (r *runner) connectNats() (*nats.Conn, error) {
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		if err := utils.WaitForTCP(addr, r.waitTo); err != nil {
			return nil, err
		}
	}
	return nats.Connect(config.NatsURL, nats.Name("bre-simulate"))
}

func (r *runner) openDB(ctx context.Context) (*pgxpool.Pool, error) {
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(addr, r.waitTo); err != nil {
			return nil, err
		}
	}
	return postgres.Open(ctx, config.DB, r.poolOptions()...)
}

func (r *runner) poolOptions() []postgres.PoolConfigOption {
	sqlLevel, err := log.ParseLevel(config.SQLLogLevel)
	if err != nil {
		sqlLevel = log.DebugLevel
	}
	ret := []postgres.PoolConfigOption{postgres.WithTracer(log.Default(), sqlLevel)}
	if config.EnableTelemetry {
		ret = []postgres.PoolConfigOption{postgres.WithOtlpTracer()}
	}
	if r.cfg.dbMaxConns > 0 {
		ret = append(ret, postgres.WithMaxConns(r.cfg.dbMaxConns))
	}
	return ret
}

//nolint:funlen // by design
func (r *runner) runRace(ctx context.Context, trackName string) (
	res *model.RaceResult, err error,
) {
	ctx, span := otel.Tracer("bre.simulate").Start(ctx, "race",
		trace.WithAttributes(attribute.String("track", trackName)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	trk, err := r.tracks.Get(ctx, trackKey{name: trackName, scale: r.cfg.race.TrackScale})
	if err != nil {
		return nil, err
	}
	raceCfg := r.cfg.race
	raceCfg.Track = trackName

	standings := make(chan *model.Standings, 16)
	session, err := sim.NewSession(trk, raceCfg,
		sim.WithProcessorOptions(
			processing.WithStandingsChannel(standings),
		))
	if err != nil {
		return nil, err
	}
	raceID := session.Processor().RaceID
	span.SetAttributes(attribute.String("race", raceID.String()))
	r.log.Info("Starting race",
		log.String("track", trk.Name),
		log.String("race", raceID.String()),
		log.Int("laps", raceCfg.Laps),
		log.Int("racers", len(session.Processor().Racers())))

	bs := broadcast.NewBroadcastServer[*model.Standings](raceID.String(), "standings", standings)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.logStandings(bs.Subscribe())
	}()
	if r.nc != nil {
		pub := natspub.New(r.nc,
			natspub.WithSubjectPrefix(r.cfg.natsSubject),
			natspub.WithEvery(r.cfg.publishEvery))
		sub := bs.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Run(ctx, sub); err != nil {
				r.log.Warn("nats publisher stopped", log.ErrorField(err))
			}
		}()
	}

	res, runErr := session.Run(ctx)
	close(standings)
	wg.Wait()
	bs.Close()
	if runErr != nil {
		return nil, runErr
	}

	r.logResult(res)
	if r.pool != nil {
		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			return resultrepos.Create(ctx, tx, res)
		})
		if err != nil {
			return nil, errors.Join(errors.New("could not store race result"), err)
		}
		r.log.Info("Stored race result", log.String("race", raceID.String()))
	}
	return res, nil
}

func (r *runner) logStandings(ch <-chan *model.Standings) {
	for s := range ch {
		if r.cfg.logEvery <= 0 || s.Tick%r.cfg.logEvery != 0 {
			continue
		}
		fields := []log.Field{log.Int("tick", s.Tick)}
		for i := range s.Entries {
			e := &s.Entries[i]
			fields = append(fields, log.String(string(e.ID), fmtEntry(e)))
		}
		r.log.Debug("Standings", fields...)
	}
}

func (r *runner) logResult(res *model.RaceResult) {
	if !res.Finished {
		r.log.Warn("Player did not finish", log.Int("ticks", res.Ticks))
	}
	for _, e := range res.Entries {
		r.log.Info("Result",
			log.Int("rank", e.Rank),
			log.String("racer", string(e.RacerID)),
			log.String("name", e.Name),
			log.String("frame", e.Frame),
			log.Bool("finished", e.Finished),
			log.Int("finishTick", e.FinishTick))
		if e.Kind == model.RacerPlayer && e.Finished {
			r.log.Info(race.FinishMessage(e.Rank))
		}
	}
}

func fmtEntry(e *model.StandingsEntry) string {
	return fmt.Sprintf("P%d lap %d wp %d (%.1f)",
		e.Rank, e.Progress.LapCount, e.Progress.NextCheckpoint,
		e.Progress.DistanceToNextCheckpoint)
}
