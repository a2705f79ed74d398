package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/location"
	"github.com/roach88/waypoint/internal/store"
)

// NewSaveCommand creates the save command: persist one detection record.
func NewSaveCommand(opts *RootOptions) *cobra.Command {
	var (
		id          string
		lat         float64
		lon         float64
		description string
		timestamp   string
		mode        string
		source      string
		confidence  float64
		imageFile   string
		weatherFile string
		placesFile  string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a detection record",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := location.Record{
				ID:           id,
				Latitude:     lat,
				Longitude:    lon,
				Description:  description,
				AnalysisMode: location.AnalysisMode(mode),
				Source:       location.Source(source),
				Timestamp:    time.Now().UTC(),
			}
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			if timestamp != "" {
				ts, err := time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return WrapExitError(ExitCommandError, "parse --timestamp", err)
				}
				rec.Timestamp = ts
			}
			if cmd.Flags().Changed("confidence") {
				c := confidence
				rec.ConfidenceScore = &c
			}
			if imageFile != "" {
				data, err := os.ReadFile(imageFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "read --image-file", err)
				}
				rec.ImageData = string(data)
			}
			var err error
			if rec.WeatherData, err = readJSONFile(weatherFile); err != nil {
				return WrapExitError(ExitCommandError, "read --weather-file", err)
			}
			if rec.NearbyPlaces, err = readJSONFile(placesFile); err != nil {
				return WrapExitError(ExitCommandError, "read --places-file", err)
			}

			return opts.withStore(cmd, func(st *store.Store) error {
				if err := st.Save(cmd.Context(), rec); err != nil {
					return WrapExitError(ExitFailure, "save record", err)
				}
				return opts.formatter(cmd).Emit(
					map[string]string{"id": rec.ID},
					func(w io.Writer) { fmt.Fprintf(w, "saved %s\n", rec.ID) },
				)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "record id (generated when omitted)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	cmd.Flags().StringVar(&description, "description", "", "human-readable location description")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "detection time, RFC 3339 (default now)")
	cmd.Flags().StringVar(&mode, "mode", string(location.ModeBasic), "analysis mode (basic|function|grounding|image-search)")
	cmd.Flags().StringVar(&source, "source", string(location.SourceCamera), "image source (camera|upload)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence score in [0,1]")
	cmd.Flags().StringVar(&imageFile, "image-file", "", "file with the encoded image payload")
	cmd.Flags().StringVar(&weatherFile, "weather-file", "", "file with the weather enrichment JSON")
	cmd.Flags().StringVar(&placesFile, "places-file", "", "file with the nearby-places enrichment JSON")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	cmd.MarkFlagRequired("description")

	return cmd
}

// readJSONFile loads an optional enrichment payload.
func readJSONFile(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
