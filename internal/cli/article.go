package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func newArticleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Manage stock articles",
	}
	cmd.AddCommand(newArticleAddCmd(a), newArticleListCmd(a))
	return cmd
}

func newArticleAddCmd(a *app) *cobra.Command {
	var art types.Article
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a stock article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			art.Name = args[0]
			added, err := store.AddArticle(cmd.Context(), art)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(added)
			}
			fmt.Fprintf(a.out, "%s\t%s\n", added.ID, added.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&art.Category, "category", "", "category")
	cmd.Flags().StringVar(&art.Manufacturer, "manufacturer", "", "manufacturer")
	cmd.Flags().StringVar(&art.Unit, "unit", "", "unit of measure")
	cmd.Flags().StringVar(&art.Instructions, "instructions", "", "usage instructions")
	cmd.Flags().IntVar(&art.MinStockWarning, "min-stock", 0, "warn when stock falls below this")
	return cmd
}

func newArticleListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stock articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			arts, err := store.Articles(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(arts)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tUNIT")
			for _, art := range arts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", art.ID, art.Name, art.Category, art.Unit)
			}
			return w.Flush()
		},
	}
}
