package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

const dateLayout = "2006-01-02"

func newPackingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packing",
		Short: "Record what was packed into a module",
	}
	cmd.AddCommand(newPackingAddCmd(a), newPackingListCmd(a), newPackingClearCmd(a))
	return cmd
}

func newPackingAddCmd(a *app) *cobra.Command {
	var (
		c      types.ModuleContent
		expiry string
	)
	cmd := &cobra.Command{
		Use:   "add <module>",
		Short: "Add an article batch to a module; its expiry date follows the earliest batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			if expiry != "" {
				t, err := time.Parse(dateLayout, expiry)
				if err != nil {
					return fmt.Errorf("%w: expiry %q must be YYYY-MM-DD", types.ErrInvalidData, expiry)
				}
				c.Expiry = t
			}
			c.ModuleID = types.NormalizeScan(args[0])
			added, err := store.AddModuleContent(cmd.Context(), c)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(added)
			}
			return a.printContents([]types.ModuleContent{added})
		},
	}
	cmd.Flags().StringVar(&c.ArticleName, "article", "", "article name")
	cmd.Flags().StringVar(&c.BatchNumber, "batch", "", "batch number")
	cmd.Flags().StringVar(&expiry, "expiry", "", "expiry date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&c.Quantity, "quantity", 1, "number of units")
	_ = cmd.MarkFlagRequired("article")
	return cmd
}

func newPackingListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <module>",
		Short: "List a module's packed contents, soonest expiry first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			contents, err := store.ModuleContents(cmd.Context(), types.NormalizeScan(args[0]))
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(contents)
			}
			return a.printContents(contents)
		},
	}
}

func newPackingClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <module>",
		Short: "Remove every packed content from a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			id := types.NormalizeScan(args[0])
			if err := store.ClearModuleContents(cmd.Context(), id); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(map[string]any{"module": id, "cleared": true})
			}
			fmt.Fprintf(a.out, "%s: contents cleared\n", id)
			return nil
		},
	}
}

func (a *app) printContents(contents []types.ModuleContent) error {
	w := a.table()
	fmt.Fprintln(w, "ARTICLE\tBATCH\tEXPIRY\tQTY")
	for _, c := range contents {
		var exp *time.Time
		if !c.Expiry.IsZero() {
			exp = &c.Expiry
		}
		batch := c.BatchNumber
		if batch == "" {
			batch = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ArticleName, batch, formatDate(exp), c.Quantity)
	}
	return w.Flush()
}
