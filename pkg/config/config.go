package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	NatsURL            string // URL of the NATS server used to publish standings
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules
	MigrationSourceURL string // location of migration files (empty: embedded)
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry ("stdout" for local output)
)

// RaceConfig holds the values that describe a single race.
type RaceConfig struct {
	Track          string  // name of an embedded track or path to an svg file
	TrackScale     float64 // scale applied to svg coordinates
	Laps           int     // number of laps to complete
	AICount        int     // number of AI racers in addition to the player
	IsCup          bool    // continue with the next catalog track after finishing
	PlayerName     string
	PlayerFrame    string  // bike frame of the player
	TickRate       int     // simulation ticks per second
	MaxTicks       int     // safety limit for headless runs
	CountdownTicks int     // ticks before racers are released
	CaptureRadius  float64 // distance at which a waypoint counts as reached
}

func DefaultRaceConfig() RaceConfig {
	return RaceConfig{
		Track:          "Pool",
		TrackScale:     1.0,
		Laps:           3,
		AICount:        4,
		IsCup:          true,
		PlayerName:     "Player",
		PlayerFrame:    "Fast",
		TickRate:       60,
		MaxTicks:       60 * 60 * 10,
		CountdownTicks: 5 * 60,
		CaptureRadius:  5.0,
	}
}
