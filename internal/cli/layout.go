package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/layout"
	"github.com/mesh-intelligence/smartgrid/internal/sqlite"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// palette lists the colors a slot can be assigned.
var palette = []string{"red", "blue", "yellow", "green"}

func newLayoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Edit the master layout every kit is checked against",
	}
	cmd.AddCommand(
		newLayoutShowCmd(a),
		newLayoutPlaceCmd(a),
		newLayoutAssignCmd(a),
		newLayoutRemoveCmd(a),
		newLayoutResizeCmd(a),
	)
	return cmd
}

// loadLayout returns the configured master layout, or an empty 4x4 one when
// none is stored yet.
func (a *app) loadLayout(ctx context.Context) (*sqlite.Backend, *types.Template, error) {
	store, err := a.backend()
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := store.MasterLayout(ctx, a.cfg.LayoutID)
	if errors.Is(err, types.ErrNotFound) {
		return store, &types.Template{ID: a.cfg.LayoutID, Cols: types.DefaultGridCols, Rows: types.DefaultGridRows}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return store, tmpl, nil
}

// editLayout loads the layout, applies edit and saves the result.
func (a *app) editLayout(cmd *cobra.Command, edit func(*types.Template) error) error {
	store, tmpl, err := a.loadLayout(cmd.Context())
	if err != nil {
		return err
	}
	if err := edit(tmpl); err != nil {
		return err
	}
	if err := store.SaveMasterLayout(cmd.Context(), tmpl); err != nil {
		return err
	}
	return a.printLayout(tmpl)
}

func (a *app) printLayout(tmpl *types.Template) error {
	if a.flags.jsonMode {
		return a.printJSON(tmpl)
	}
	fmt.Fprintf(a.out, "%s: %dx%d, %d slots\n", tmpl.ID, tmpl.Cols, tmpl.Rows, len(tmpl.Slots))
	if len(tmpl.Slots) == 0 {
		return nil
	}
	w := a.table()
	fmt.Fprintln(w, "#\tPOS\tSIZE\tCONTENT\tCOLOR")
	for i, s := range tmpl.Slots {
		name := s.Name
		if name == "" {
			name = "(unassigned)"
		}
		fmt.Fprintf(w, "%d\t%s\t%dx%d\t%s\t%s\n", i, position(s.Placement), s.Width, s.Height, name, s.Color)
	}
	return w.Flush()
}

func newLayoutShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the master layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tmpl, err := a.loadLayout(cmd.Context())
			if err != nil {
				return err
			}
			return a.printLayout(tmpl)
		},
	}
}

func placementFlags(cmd *cobra.Command, p *types.Placement, size bool) {
	cmd.Flags().IntVar(&p.Col, "col", 0, "column, starting at 0")
	cmd.Flags().IntVar(&p.Row, "row", 0, "row, starting at 0")
	if size {
		cmd.Flags().IntVar(&p.Width, "width", 1, "width in cells")
		cmd.Flags().IntVar(&p.Height, "height", 1, "height in cells")
	}
}

func newLayoutPlaceCmd(a *app) *cobra.Command {
	var p types.Placement
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Add an unassigned slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editLayout(cmd, func(t *types.Template) error { return layout.Place(t, p) })
		},
	}
	placementFlags(cmd, &p, true)
	return cmd
}

func newLayoutAssignCmd(a *app) *cobra.Command {
	var c layout.Content
	cmd := &cobra.Command{
		Use:   "assign <slot#>",
		Short: "Assign catalog content and a color to a slot",
		Long: "Assign catalog content and a color to a slot. Without --name, list the\n" +
			"content and color pairs the slot can still take.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var idx int
			if _, err := fmt.Sscanf(args[0], "%d", &idx); err != nil {
				return fmt.Errorf("slot number %q: %w", args[0], types.ErrSlotNotFound)
			}
			store, err := a.backend()
			if err != nil {
				return err
			}
			defs, err := store.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			var options []layout.Content
			for _, d := range defs {
				for _, color := range palette {
					options = append(options, layout.Content{Name: d.Name, Color: color})
				}
			}

			if c.Name == "" {
				_, tmpl, err := a.loadLayout(cmd.Context())
				if err != nil {
					return err
				}
				free := layout.Assignable(tmpl, idx, options)
				if a.flags.jsonMode {
					return a.printJSON(free)
				}
				for _, o := range free {
					fmt.Fprintf(a.out, "%s\t%s\n", o.Name, o.Color)
				}
				return nil
			}

			known := false
			for _, d := range defs {
				known = known || d.Name == c.Name
			}
			if !known {
				return fmt.Errorf("content %q: %w", c.Name, types.ErrNotFound)
			}
			return a.editLayout(cmd, func(t *types.Template) error { return layout.Assign(t, idx, c) })
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "catalog content name")
	cmd.Flags().StringVar(&c.Color, "color", "grey", "slot color")
	return cmd
}

func newLayoutRemoveCmd(a *app) *cobra.Command {
	var p types.Placement
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the slot starting at --col/--row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editLayout(cmd, func(t *types.Template) error { return layout.Remove(t, p.Col, p.Row) })
		},
	}
	placementFlags(cmd, &p, false)
	return cmd
}

func newLayoutResizeCmd(a *app) *cobra.Command {
	var cols, rows int
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Change the grid size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editLayout(cmd, func(t *types.Template) error {
				c, r := cols, rows
				if c == 0 {
					c = t.Cols
				}
				if r == 0 {
					r = t.Rows
				}
				return layout.Resize(t, c, r)
			})
		},
	}
	cmd.Flags().IntVar(&cols, "cols", 0, "columns (default: unchanged)")
	cmd.Flags().IntVar(&rows, "rows", 0, "rows (default: unchanged)")
	return cmd
}
