package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/store"
)

// NewSearchCommand creates the search command: case-insensitive
// substring match over descriptions.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search record descriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(st *store.Store) error {
				summaries, err := st.Search(cmd.Context(), args[0], limit)
				if err != nil {
					return WrapExitError(ExitFailure, "search records", err)
				}
				return opts.formatter(cmd).Emit(summaries, func(w io.Writer) {
					writeSummaries(w, summaries)
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum records to return")
	return cmd
}
