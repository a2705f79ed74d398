package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/store"
)

// NewGetCommand creates the get command: full record by id.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show the full record for an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(st *store.Store) error {
				rec, found, err := st.GetByID(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "get record", err)
				}
				if !found {
					return opts.formatter(cmd).Emit(nil, func(w io.Writer) {
						fmt.Fprintf(w, "no record %s\n", args[0])
					})
				}
				return opts.formatter(cmd).Emit(rec, func(w io.Writer) {
					fmt.Fprintf(w, "id:          %s\n", rec.ID)
					fmt.Fprintf(w, "coordinates: %.8f, %.8f\n", rec.Latitude, rec.Longitude)
					fmt.Fprintf(w, "description: %s\n", rec.Description)
					fmt.Fprintf(w, "timestamp:   %s\n", rec.Timestamp.UTC().Format("2006-01-02 15:04:05"))
					fmt.Fprintf(w, "mode:        %s\n", rec.AnalysisMode)
					fmt.Fprintf(w, "source:      %s\n", rec.Source)
					if rec.ConfidenceScore != nil {
						fmt.Fprintf(w, "confidence:  %.2f\n", *rec.ConfidenceScore)
					}
					if rec.ImageData != "" {
						fmt.Fprintf(w, "image:       %d bytes\n", len(rec.ImageData))
					}
					if len(rec.WeatherData) > 0 {
						fmt.Fprintf(w, "weather:     %s\n", rec.WeatherData)
					}
					if len(rec.NearbyPlaces) > 0 {
						fmt.Fprintf(w, "places:      %s\n", rec.NearbyPlaces)
					}
				})
			})
		},
	}
	return cmd
}
