package compile

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

var (
	embedded string
	scale    float64
)

func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file.svg]",
		Short: "compiles a track definition and prints a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trk, err := loadTrack(args)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), trk)
		},
	}
	cmd.Flags().StringVar(&embedded,
		"embedded",
		"",
		"name of an embedded track (see 'tracks')")
	cmd.Flags().Float64Var(&scale,
		"scale",
		1.0,
		"scale applied to svg coordinates")
	return cmd
}

func loadTrack(args []string) (*track.Track, error) {
	switch {
	case embedded != "" && len(args) > 0:
		return nil, fmt.Errorf("use either --embedded or a file argument")
	case embedded != "":
		return track.LoadEmbedded(embedded, track.WithScale(scale))
	case len(args) == 1:
		return track.LoadFile(args[0], track.WithScale(scale))
	default:
		return nil, fmt.Errorf("missing track: pass a file or --embedded")
	}
}

type point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type marker struct {
	Position point   `yaml:"position"`
	Radius   float64 `yaml:"radius"`
}

type Summary struct {
	Name       string         `yaml:"name"`
	LapLength  float64        `yaml:"lapLength"`
	Waypoints  []point        `yaml:"waypoints"`
	Primitives map[string]int `yaml:"primitives"`
	Markers    []marker       `yaml:"spawnMarkers"`
}

func NewSummary(trk *track.Track) Summary {
	return Summary{
		Name:      trk.Name,
		LapLength: trk.Graph.Length(),
		Waypoints: lo.Map(trk.Graph.Waypoints(), func(w track.Waypoint, _ int) point {
			return point{X: w.Position.X(), Y: w.Position.Y()}
		}),
		Primitives: lo.CountValuesBy(trk.Primitives, func(p track.CollisionPrimitive) string {
			return p.Surface.String()
		}),
		Markers: lo.Map(trk.SpawnMarkers, func(m track.SpawnMarker, _ int) marker {
			return marker{
				Position: point{X: m.Position.X(), Y: m.Position.Y()},
				Radius:   m.Radius,
			}
		}),
	}
}

func writeSummary(w io.Writer, trk *track.Track) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSummary(trk)); err != nil {
		return err
	}
	return enc.Close()
}
