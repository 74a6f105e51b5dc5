package tracks

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/bikerace-engine/pkg/track"
)

func NewTracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks",
		Short: "lists the embedded tracks in cup order",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range track.Catalog() {
				trk, err := track.LoadEmbedded(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %-20s waypoints: %3d lap length: %.1f\n",
					i+1, name, trk.Graph.Len(), trk.Graph.Length())
			}
			return nil
		},
	}
}
