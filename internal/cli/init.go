package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Create the configuration directory with a default config.yaml, then create\n" +
			"the data directory with empty JSONL tables and the default master layout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.backend(); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(map[string]string{
					"config": paths.ConfigFile(a.configDir),
					"data":   a.cfg.DataDir,
				})
			}
			fmt.Fprintf(a.out, "config: %s\ndata:   %s\nsmartgrid initialized\n", paths.ConfigFile(a.configDir), a.cfg.DataDir)
			return nil
		},
	}
}
