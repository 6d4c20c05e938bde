package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/layout"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func newModuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Register and inspect modules (pouches)",
	}
	cmd.AddCommand(newModuleRegisterCmd(a), newModuleShowCmd(a), newModuleListCmd(a))
	return cmd
}

func newModuleRegisterCmd(a *app) *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "register <identifier>",
		Short: "Register a scanned tag as a module waiting for a kit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			if color == "" {
				color = layout.ColorName(types.Decode(types.NormalizeScan(args[0])).Color)
			}
			m, err := store.RegisterModule(cmd.Context(), args[0], name, color)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(m)
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", m.ID, m.Name, m.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: catalog name for the content code)")
	cmd.Flags().StringVar(&color, "color", "", "color (default: from the identifier's color code)")
	return cmd
}

// moduleReport is what module show prints.
type moduleReport struct {
	Module    *types.Module         `json:"module"`
	Freshness types.Freshness       `json:"freshness"`
	Contents  []types.ModuleContent `json:"contents"`
}

func newModuleShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identifier>",
		Short: "Show a module with its packed contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			id := types.NormalizeScan(args[0])
			m, err := store.ModuleByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("module %s: %w", id, types.ErrNotFound)
			}
			contents, err := store.ModuleContents(cmd.Context(), id)
			if err != nil {
				return err
			}
			r := moduleReport{Module: m, Freshness: a.freshness(m, time.Now()), Contents: contents}
			if a.flags.jsonMode {
				return a.printJSON(r)
			}

			kit := m.KitID
			if kit == "" {
				kit = "-"
			}
			fmt.Fprintf(a.out, "%s %s\nstatus:    %s\ncolor:     %s\nkit:       %s %s\nexpiry:    %s (%s)\n",
				m.ID, m.Name, m.Status, m.Color, kit, position(m.Placement), formatDate(m.Expiry), r.Freshness)
			if len(contents) == 0 {
				return nil
			}
			fmt.Fprintln(a.out)
			return a.printContents(contents)
		},
	}
}

func newModuleListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered module, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			mods, err := store.Modules(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(mods)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tKIT\tPOS\tEXPIRY")
			for _, m := range mods {
				kit, pos := "-", "-"
				if m.Assigned() {
					kit, pos = m.KitID, position(m.Placement)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Status, kit, pos, formatDate(m.Expiry))
			}
			return w.Flush()
		},
	}
}
