package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecipeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Define which articles each catalog content holds",
	}
	cmd.AddCommand(newRecipeAddCmd(a), newRecipeListCmd(a), newRecipeRemoveCmd(a))
	return cmd
}

func newRecipeAddCmd(a *app) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <code> <article-id>",
		Short: "Set how many of an article a catalog content holds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			it, err := store.AddToRecipe(cmd.Context(), args[0], args[1], quantity)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(it)
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s x%d\n", it.ID, it.CatalogCode, it.Article.Name, it.Quantity)
			return nil
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 1, "units per module")
	return cmd
}

func newRecipeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <code>",
		Short: "List the articles a catalog content holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			items, err := store.Recipe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(items)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tARTICLE\tQTY")
			for _, it := range items {
				name := it.ArticleID + " (missing)"
				if it.Article != nil {
					name = it.Article.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", it.ID, name, it.Quantity)
			}
			return w.Flush()
		},
	}
}

func newRecipeRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one recipe line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			if err := store.RemoveFromRecipe(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !a.flags.jsonMode {
				fmt.Fprintf(a.out, "%s removed\n", args[0])
				return nil
			}
			return a.printJSON(map[string]string{"removed": args[0]})
		},
	}
}
