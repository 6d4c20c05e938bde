package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/internal/monitor"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the fleet on every change and print new alerts",
		Long: "Reload the fleet whenever the store signals a change and print the\n" +
			"alerts each reload raises. Changes made by other processes are seen\n" +
			"only with the file or redis notify driver. Stop with Ctrl-C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			onLoad := func(kits []*types.Kit, raised []monitor.Alert) {
				if err := a.printFleet(fleetReport{Kits: kits, Alerts: raised}); err != nil {
					a.log.Warn("printing reload", zap.Error(err))
				}
			}
			m, err := a.newMonitor(ctx, onLoad)
			if err != nil {
				return err
			}
			sub, err := a.store.Subscribe(ctx)
			if err != nil {
				return err
			}
			defer sub.Close()

			if a.cfg.Notify.Driver == types.NotifyNone {
				a.log.Warn("notify driver is none; only changes made by this process are seen")
			}
			return m.Run(ctx, sub)
		},
	}
}
