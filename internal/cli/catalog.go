package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage content definitions",
	}
	cmd.AddCommand(newCatalogAddCmd(a), newCatalogListCmd(a))
	return cmd
}

func newCatalogAddCmd(a *app) *cobra.Command {
	var def types.ContentDefinition
	cmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Add or replace a content definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			def.Code, def.Name = args[0], args[1]
			saved, err := store.AddContentDefinition(cmd.Context(), def)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(saved)
			}
			fmt.Fprintf(a.out, "%s\t%s\n", saved.Code, saved.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&def.Description, "description", "", "free-text description")
	cmd.Flags().IntVar(&def.DefaultWidth, "width", 1, "default slot width")
	cmd.Flags().IntVar(&def.DefaultHeight, "height", 1, "default slot height")
	return cmd
}

func newCatalogListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List content definitions by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			defs, err := store.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(defs)
			}
			w := a.table()
			fmt.Fprintln(w, "CODE\tNAME\tSIZE\tDESCRIPTION")
			for _, d := range defs {
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\n", d.Code, d.Name, d.DefaultWidth, d.DefaultHeight, d.Description)
			}
			return w.Flush()
		},
	}
}
