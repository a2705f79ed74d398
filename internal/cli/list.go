package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/location"
	"github.com/roach88/waypoint/internal/store"
)

// NewListCommand creates the list command: newest records first.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(st *store.Store) error {
				summaries, err := st.List(cmd.Context(), limit)
				if err != nil {
					return WrapExitError(ExitFailure, "list records", err)
				}
				return opts.formatter(cmd).Emit(summaries, func(w io.Writer) {
					writeSummaries(w, summaries)
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultListLimit, "maximum records to return")
	return cmd
}

// writeSummaries renders the shared text layout for list and search.
func writeSummaries(w io.Writer, summaries []location.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %s  (%.6f, %.6f)  [%s/%s]  %s\n",
			s.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			s.ID, s.Latitude, s.Longitude, s.Source, s.AnalysisMode, s.Description)
	}
}
