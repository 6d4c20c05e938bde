// Package cli implements the gridctl command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/internal/logging"
	"github.com/mesh-intelligence/smartgrid/internal/monitor"
	"github.com/mesh-intelligence/smartgrid/internal/paths"
	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/internal/sqlite"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state one invocation shares between its commands.
type app struct {
	flags  rootFlags
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	log       *zap.Logger
	configDir string
	cfg       types.Config
	store     *sqlite.Backend
}

// exitError carries the exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// sysErr marks err as a system failure (exit 2).
func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to the process exit code. Repository transport
// failures and errors marked by sysErr are system errors; everything else
// is the operator's to fix.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if types.IsTransport(err) {
		return exitSysError
	}
	return exitUserError
}

// NewRootCmd creates the top-level "gridctl" command with global flags and
// all subcommands registered. Output goes to the command's writers.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, log: zap.NewNop()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gridctl",
		Short: "Track readiness of emergency kits",
		Long: "gridctl manages kits, their RFID-tagged modules and the master layout,\n" +
			"derives each kit's operational status and runs the two-step swap protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newKitCmd(a),
		newModuleCmd(a),
		newCatalogCmd(a),
		newLayoutCmd(a),
		newSwapCmd(a),
		newRefreshCmd(a),
		newWatchCmd(a),
		newPackingCmd(a),
		newArticleCmd(a),
		newRecipeCmd(a),
	)
	return root
}

// setup resolves directories, reads config.yaml and builds the logger.
func (a *app) setup() error {
	log, err := logging.New(a.flags.verbose)
	if err != nil {
		return sysErr(err)
	}
	a.log = log

	a.configDir, err = paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(a.configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug("configuration loaded",
		zap.String("config_dir", a.configDir),
		zap.String("data_dir", cfg.DataDir),
		zap.String("notify", cfg.Notify.Driver))
	return nil
}

// backend attaches the store on first use.
func (a *app) backend() (*sqlite.Backend, error) {
	if a.store != nil {
		return a.store, nil
	}
	store := sqlite.NewBackend(sqlite.WithLogger(a.log))
	if err := store.Attach(a.cfg); err != nil {
		return nil, sysErr(fmt.Errorf("attach backend: %w", err))
	}
	a.store = store
	return store, nil
}

// newMonitor attaches the store and loads the fleet.
func (a *app) newMonitor(ctx context.Context, onLoad func([]*types.Kit, []monitor.Alert)) (*monitor.Monitor, error) {
	store, err := a.backend()
	if err != nil {
		return nil, err
	}
	m := monitor.New(monitor.Config{
		Repo:     store,
		Resolver: readiness.NewResolver(a.cfg),
		LayoutID: a.cfg.LayoutID,
		Logger:   a.log,
		OnLoad:   onLoad,
	})
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	if d := m.Diagnostic(); d != nil {
		fmt.Fprintln(a.errOut, "warning:", d)
	}
	return m, nil
}

// close detaches the store and flushes the logger.
func (a *app) close() error {
	var err error
	if a.store != nil {
		err = a.store.Detach()
		a.store = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

// run executes one gridctl invocation and returns its exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut, log: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil && cerr != nil {
		err = sysErr(cerr)
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
	}
	return exitCode(err)
}

// Execute runs gridctl with the process arguments and exits with the
// matching code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
