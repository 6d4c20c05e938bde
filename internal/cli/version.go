package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/pkg/smartgrid"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				return a.printJSON(map[string]string{"version": smartgrid.Version, "module": smartgrid.ModulePath})
			}
			fmt.Fprintf(a.out, "gridctl v%s\nmodule: %s\n", smartgrid.Version, smartgrid.ModulePath)
			return nil
		},
	}
}
