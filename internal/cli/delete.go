package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/store"
)

// NewDeleteCommand creates the delete command. Deleting an unknown id
// succeeds; the record set simply no longer contains it.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return WrapExitError(ExitFailure, "delete record", err)
				}
				return opts.formatter(cmd).Emit(
					map[string]string{"id": args[0]},
					func(w io.Writer) { fmt.Fprintf(w, "deleted %s\n", args[0]) },
				)
			})
		},
	}
	return cmd
}

// NewClearCommand creates the clear command: remove every record.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return WrapExitError(ExitCommandError, "refusing to clear without --yes", nil)
			}
			return opts.withStore(cmd, func(st *store.Store) error {
				if err := st.ClearAll(cmd.Context()); err != nil {
					return WrapExitError(ExitFailure, "clear records", err)
				}
				return opts.formatter(cmd).Emit(nil, func(w io.Writer) {
					fmt.Fprintln(w, "cleared")
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion of every record")
	return cmd
}
