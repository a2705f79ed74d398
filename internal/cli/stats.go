package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/location"
	"github.com/roach88/waypoint/internal/store"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(st *store.Store) error {
				stats, err := st.Statistics(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "read statistics", err)
				}
				return opts.formatter(cmd).Emit(stats, func(w io.Writer) {
					writeStatistics(w, stats)
				})
			})
		},
	}
	return cmd
}

// writeStatistics renders stats as text. Sources are sorted so the
// output is deterministic.
func writeStatistics(w io.Writer, stats location.Statistics) {
	fmt.Fprintf(w, "total locations: %d\n", stats.TotalLocations)
	fmt.Fprintln(w, "by source:")
	sources := make([]string, 0, len(stats.BySource))
	for s := range stats.BySource {
		sources = append(sources, string(s))
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Fprintf(w, "  %-8s %d\n", s+":", stats.BySource[location.Source(s)])
	}
	fmt.Fprintf(w, "last 7 days: %d\n", stats.LastSevenDays)
}
