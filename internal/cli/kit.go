package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/monitor"
	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func newKitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kit",
		Short: "Manage kits (backpacks)",
	}
	cmd.AddCommand(
		newKitCreateCmd(a),
		newKitListCmd(a),
		newKitShowCmd(a),
		newKitDeleteCmd(a),
		newKitPrepareCmd(a),
		newKitFinishCmd(a),
		newKitFindCmd(a),
	)
	return cmd
}

func newKitCreateCmd(a *app) *cobra.Command {
	var k types.Kit
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty kit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			created, err := store.CreateKit(cmd.Context(), &k)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(created)
			}
			fmt.Fprintln(a.out, created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&k.ID, "id", "", "kit ID (default: generated)")
	f.StringVar(&k.Name, "name", "", "kit name")
	f.StringVar(&k.QRCode, "qr", "", "QR code payload")
	f.StringVar(&k.Site, "site", "", "hospital or station")
	f.StringVar(&k.Type, "type", "", "kit type")
	f.IntVar(&k.Cols, "cols", types.DefaultGridCols, "grid columns")
	f.IntVar(&k.Rows, "rows", types.DefaultGridRows, "grid rows")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newKitListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List kits with their resolved status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			kits := m.Kits()
			if a.flags.jsonMode {
				return a.printJSON(kits)
			}
			return a.printKits(kits)
		},
	}
}

func (a *app) printKits(kits []*types.Kit) error {
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tMODULES\tBATTERY\tLAST SYNC")
	for _, k := range kits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d%%\t%s\n",
			k.ID, k.Name, k.Status, len(k.Modules), k.Battery, formatSync(k.LastSync))
	}
	return w.Flush()
}

// kitReport is what kit show prints.
type kitReport struct {
	Kit       *types.Kit         `json:"kit"`
	Verdict   readiness.Verdict  `json:"verdict"`
	Effective []*types.Module    `json:"effective"`
	PickList  []monitor.PickItem `json:"pick_list"`
	Freshness map[string]string  `json:"freshness,omitempty"`
}

func newKitShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kit>",
		Short: "Show a kit's slots, status reason and pick list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			k, err := m.Find(args[0])
			if err != nil {
				return err
			}
			eff, err := m.Effective(k.ID)
			if err != nil {
				return err
			}
			picks, err := m.PickList(k.ID)
			if err != nil {
				return err
			}
			now := time.Now()
			r := kitReport{
				Kit:       k,
				Verdict:   readiness.NewResolver(a.cfg).Evaluate(k, m.Template(), now),
				Effective: eff,
				PickList:  picks,
				Freshness: make(map[string]string),
			}
			for _, mod := range eff {
				if !mod.Placeholder {
					r.Freshness[mod.ID] = string(a.freshness(mod, now))
				}
			}
			if a.flags.jsonMode {
				return a.printJSON(r)
			}
			return a.printKit(r)
		},
	}
}

func (a *app) printKit(r kitReport) error {
	k := r.Kit
	fmt.Fprintf(a.out, "%s (%s)\nstatus:  %s (%s", k.Name, k.ID, k.Status, r.Verdict.Reason)
	if r.Verdict.Detail != "" {
		fmt.Fprintf(a.out, ": %s", r.Verdict.Detail)
	}
	fmt.Fprintf(a.out, ")\nbattery: %d%%\nsync:    %s\n\n", k.Battery, formatSync(k.LastSync))

	w := a.table()
	fmt.Fprintln(w, "POS\tID\tNAME\tSTATUS\tEXPIRY\tFRESHNESS")
	for _, mod := range r.Effective {
		fresh := r.Freshness[mod.ID]
		if fresh == "" {
			fresh = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			position(mod.Placement), mod.ID, mod.Name, mod.Status, formatDate(mod.Expiry), fresh)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(r.PickList) == 0 {
		fmt.Fprintln(a.out, "\nnothing to do")
		return nil
	}
	fmt.Fprintf(a.out, "\npick list (%d):\n", len(r.PickList))
	for _, it := range r.PickList {
		mark := " "
		switch {
		case it.Next:
			mark = ">"
		case !it.Actionable:
			mark = "-"
		}
		fmt.Fprintf(a.out, "%s %-7s %s %s %s\n", mark, it.Action, position(it.Module.Placement), it.Module.ID, it.Module.Name)
	}
	return nil
}

func newKitDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kit>",
		Short: "Delete a kit; its modules return to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.backend()
			if err != nil {
				return err
			}
			if err := store.DeleteBackpack(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !a.flags.jsonMode {
				fmt.Fprintf(a.out, "deleted %s\n", args[0])
			}
			return nil
		},
	}
}

func newKitPrepareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <kit>",
		Short: "Mark a kit as being filled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			k, err := m.Find(args[0])
			if err != nil {
				return err
			}
			if err := m.BeginPreparation(cmd.Context(), k.ID); err != nil {
				return err
			}
			return a.printStatus(k.ID, types.StatusInPreparation)
		},
	}
}

func newKitFinishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "finish <kit>",
		Short: "End preparation and record the resolved status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			k, err := m.Find(args[0])
			if err != nil {
				return err
			}
			status, err := m.EndPreparation(cmd.Context(), k.ID)
			if err != nil {
				return err
			}
			return a.printStatus(k.ID, status)
		},
	}
}

func (a *app) printStatus(id string, status types.OperationalStatus) error {
	if a.flags.jsonMode {
		return a.printJSON(map[string]string{"id": id, "status": string(status)})
	}
	fmt.Fprintf(a.out, "%s: %s\n", id, status)
	return nil
}

func newKitFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <code>",
		Short: "Find a kit by ID, QR payload or part of its name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			k, err := m.Find(args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return a.printJSON(k)
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", k.ID, k.Name, k.Status)
			return nil
		},
	}
}
