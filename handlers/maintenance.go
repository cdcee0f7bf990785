// handlers/maintenance.go
package handlers

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gewnthar/ulsync/services"
)

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove licenses that are not active",
		Long: `Remove every license whose status is not the configured active status,
together with its entity, amateur, history, comment and condition rows.
The affected rows are shown first; nothing is deleted without confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := services.NewMaintenance(a.cfg, a.store).
				PruneInactive(cmd.Context(), confirmer(yes, cmd.InOrStdin(), cmd.ErrOrStderr()))
			if out == nil {
				return a.finish(nil, err, nil)
			}
			return a.finish(out, err, func(w io.Writer) { renderPrune(w, out) })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Create missing indexes and report the index set of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := services.NewMaintenance(a.cfg, a.store).RebuildIndexes(cmd.Context())
			return a.finish(reports, err, func(w io.Writer) { renderIndexes(w, reports) })
		},
	}
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Refresh statistics and reclaim free space in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := services.NewMaintenance(a.cfg, a.store).Compact(cmd.Context())
			if err != nil {
				return a.out.Failure(nil, err, nil)
			}
			return a.out.Success(res, func(w io.Writer) { renderCompact(w, res) })
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last load, table sizes and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := services.NewMaintenance(a.cfg, a.store).Status(cmd.Context())
			if err != nil {
				return a.out.Failure(nil, err, nil)
			}
			return a.out.Success(report, func(w io.Writer) { renderStatus(w, report) })
		},
	}
}
