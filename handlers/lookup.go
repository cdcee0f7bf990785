// handlers/lookup.go
package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gewnthar/ulsync/services"
	"github.com/gewnthar/ulsync/utils"
)

// ErrNotFound is returned by lookup when no license holds the call sign.
var ErrNotFound = errors.New("no matching license")

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var all, detail bool
	cmd := &cobra.Command{
		Use:   "lookup <callsign>",
		Short: "Show the license holding a call sign",
		Long: `Show the license holding a call sign, joined with its licensee and
amateur details. Only active licenses are searched unless --all is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cs := utils.NormalizeCallSign(args[0])
			if cs != "" && !utils.LooksLikeCallSign(cs) {
				a.out.VerboseLog("note: %s does not look like a US amateur call sign", cs)
			}

			d, err := services.NewLookupService(a.cfg, a.store).ByCallSign(cmd.Context(), args[0], all, detail)
			if err != nil {
				return a.out.Failure(nil, err, nil)
			}
			if d == nil {
				err := fmt.Errorf("%w for %s", ErrNotFound, cs)
				if !all {
					err = fmt.Errorf("%w (inactive licenses need --all)", err)
				}
				return a.out.Failure(nil, err, nil)
			}
			return a.out.Success(d, func(w io.Writer) { renderLicense(w, d) })
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include licenses that are not active")
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "include history, comments and conditions")
	return cmd
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var req services.SearchRequest
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find licenses by licensee name and/or state",
		Long: `Find licenses whose licensee name contains --name (ignoring case) and/or
whose address is in the two-letter --region. At least one is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			views, err := services.NewLookupService(a.cfg, a.store).Search(cmd.Context(), req)
			if err != nil {
				return a.out.Failure(nil, err, nil)
			}
			return a.out.Success(views, func(w io.Writer) { renderSearch(w, views) })
		},
	}
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "part of the licensee or entity name")
	cmd.Flags().StringVarP(&req.Region, "region", "r", "", "two-letter state or territory code")
	cmd.Flags().BoolVarP(&req.All, "all", "a", false, "include licenses that are not active")
	return cmd
}
