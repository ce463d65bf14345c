// Command graphbuild turns a GeoJSON FeatureCollection of street ways into
// the point set and segment map the server loads at startup.
package main

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var pointsOut, segmentsOut string

	cmd := &cobra.Command{
		Use:   "graphbuild <streets.geojson>",
		Short: "Build street graph artifacts from GeoJSON ways",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fc, err := geojson.UnmarshalFeatureCollection(data)
			if err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			ds, err := streetgraph.Build(fc)
			if err != nil {
				return err
			}
			if err := ds.WriteFiles(pointsOut, segmentsOut); err != nil {
				return err
			}

			// check the artifacts load the way the server will load them
			g, err := streetgraph.Load(pointsOut, segmentsOut)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ways:     %d\n", ds.Ways)
			fmt.Fprintf(out, "points:   %d\n", len(ds.Points.Features))
			fmt.Fprintf(out, "segments: %d\n", g.Len())
			fmt.Fprintf(out, "length:   %s km\n", models.FormatKilometers(int64(g.TotalLengthM()), false))
			return nil
		},
	}

	cmd.Flags().StringVar(&pointsOut, "points", "points.json", "output path of the point set")
	cmd.Flags().StringVar(&segmentsOut, "segments", "segment_map.json", "output path of the segment map")
	return cmd
}
