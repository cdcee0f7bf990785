// handlers/update.go
package handlers

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gewnthar/ulsync/services"
)

type updateOptions struct {
	force     bool
	skipFetch bool
	prune     bool
	yes       bool
	keepFiles bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &updateOptions{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the archive if it changed and merge it into the store",
		Long: `Check the remote archive, download it when it is newer than the last
completed load, and merge every table into the store. Indexes are dropped
for the load and rebuilt afterwards; the store is compacted at the end.

With --prune, licenses that are not active are removed after indexing. The
removal is previewed and needs confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "load even if the archive has not changed")
	cmd.Flags().BoolVar(&opts.skipFetch, "skip-fetch", false, "use the archive or extracted files already on disk")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "remove inactive licenses after loading")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask before pruning")
	cmd.Flags().BoolVar(&opts.keepFiles, "keep-files", false, "keep the downloaded archive and extracted files")

	return cmd
}

func runUpdate(cmd *cobra.Command, rootOpts *RootOptions, opts *updateOptions) error {
	a, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := services.NewUpdateCoordinator(a.cfg, a.store).Run(cmd.Context(), services.Options{
		Force:     opts.force,
		SkipFetch: opts.skipFetch,
		Prune:     opts.prune,
		Confirmer: confirmer(opts.yes, cmd.InOrStdin(), cmd.ErrOrStderr()),
		KeepFiles: opts.keepFiles,
	})
	return a.finish(res, err, func(w io.Writer) { renderRun(w, res) })
}
