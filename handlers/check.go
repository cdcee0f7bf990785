// handlers/check.go
package handlers

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gewnthar/ulsync/services"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether a newer archive is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := services.NewUpdateCoordinator(a.cfg, a.store).Check(cmd.Context())
			if err != nil {
				return a.out.Failure(nil, err, nil)
			}
			return a.out.Success(res, func(w io.Writer) { renderCheck(w, res) })
		},
	}
}
