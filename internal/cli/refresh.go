package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/monitor"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// fleetReport is what refresh and each watch reload print.
type fleetReport struct {
	Kits   []*types.Kit    `json:"kits"`
	Alerts []monitor.Alert `json:"alerts"`
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute every kit's status, record corrections and list alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report fleetReport
			_, err := a.newMonitor(cmd.Context(), func(kits []*types.Kit, raised []monitor.Alert) {
				report = fleetReport{Kits: kits, Alerts: raised}
			})
			if err != nil {
				return err
			}
			return a.printFleet(report)
		},
	}
}

func (a *app) printFleet(r fleetReport) error {
	if a.flags.jsonMode {
		return a.printJSON(r)
	}
	if err := a.printKits(r.Kits); err != nil {
		return err
	}
	if len(r.Alerts) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	return a.printAlerts(r.Alerts)
}

func (a *app) printAlerts(alerts []monitor.Alert) error {
	w := a.table()
	fmt.Fprintln(w, "LEVEL\tKIT\tMODULE\tTITLE\tMESSAGE")
	for _, al := range alerts {
		mod := al.ModuleID
		if mod == "" {
			mod = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", al.Level, al.KitID, mod, al.Title, al.Message)
	}
	return w.Flush()
}
