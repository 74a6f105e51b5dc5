package sim

import (
	"math"

	"github.com/samber/lo"

	"github.com/mpapenbr/bikerace-engine/pkg/geom"
	"github.com/mpapenbr/bikerace-engine/pkg/model"
)

// Params drive the kinematic bike model.
type Params struct {
	MaxSpeed     float64 // units per second
	Acceleration float64 // units per second²
	Turn         float64 // radians per second at full steering
	Drift        float64 // share of lateral velocity kept per 1/60 s
}

var BaseParams = Params{
	MaxSpeed:     20,
	Acceleration: 15,
	Turn:         2.5,
	Drift:        0.95,
}

// Frame scales the base parameters.
type Frame struct {
	Name         string
	MaxSpeed     float64
	Acceleration float64
	Turn         float64
	Drift        float64
}

var Frames = []Frame{
	{Name: "Fast", MaxSpeed: 1.0, Acceleration: 1.0, Turn: 1.0, Drift: 0.5},
	{Name: "Princess", MaxSpeed: 0.9, Acceleration: 1.8, Turn: 1.2, Drift: 1.5},
	{Name: "Banana", MaxSpeed: 0.8, Acceleration: 1.53, Turn: 1.0, Drift: 1.0},
	{Name: "Flames", MaxSpeed: 1.2, Acceleration: 1.0, Turn: 0.8, Drift: 1.0},
}

func FrameByName(name string) (Frame, bool) {
	return lo.Find(Frames, func(f Frame) bool { return f.Name == name })
}

func (f Frame) Params() Params {
	return Params{
		MaxSpeed:     BaseParams.MaxSpeed * f.MaxSpeed,
		Acceleration: BaseParams.Acceleration * f.Acceleration,
		Turn:         BaseParams.Turn * f.Turn,
		Drift:        math.Min(BaseParams.Drift*f.Drift, 0.99),
	}
}

// fullTurnSpeed is the forward speed from which steering has full effect.
const fullTurnSpeed = 8.0

// Bike is a minimal kinematic bicycle standing in for a physics engine.
type Bike struct {
	State  model.RacerState
	Params Params
}

// Step advances the bike by dt seconds. speedFactor scales the top speed
// (1 on normal ground).
func (b *Bike) Step(cmd model.Command, dt, speedFactor float64) {
	p := b.Params
	fwd := geom.Forward(b.State.Rotation)
	vf := b.State.Velocity.Dot(fwd)
	vr := b.State.Velocity.Dot(right(fwd))

	maxSpeed := p.MaxSpeed * speedFactor
	vf += (geom.Clamp(cmd.Accel, -1, 1)*p.Acceleration - p.Acceleration/maxSpeed*vf) * dt
	vr *= math.Pow(p.Drift, dt*60)

	b.State.Rotation += geom.Clamp(cmd.Turn, -1, 1) * p.Turn *
		geom.Clamp(vf/fullTurnSpeed, -1, 1) * dt
	fwd = geom.Forward(b.State.Rotation)
	b.State.Velocity = fwd.Mul(vf).Add(right(fwd).Mul(vr))
	b.State.Position = b.State.Position.Add(b.State.Velocity.Mul(dt))
}

func right(fwd geom.Vec2) geom.Vec2 {
	return geom.V(fwd.Y(), -fwd.X())
}

// Heading returns the rotation whose forward vector points along dir.
func Heading(dir geom.Vec2) float64 {
	return math.Atan2(-dir.X(), dir.Y())
}
