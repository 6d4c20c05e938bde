package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/smartgrid/internal/swap"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// ErrSwapAbandoned is returned when input ends before the swap completes.
var ErrSwapAbandoned = errors.New("swap abandoned before completion")

// swapLine is one streamed swap step in --json mode.
type swapLine struct {
	Input   string       `json:"input,omitempty"`
	State   string       `json:"state"`
	Outcome swap.Outcome `json:"outcome"`
	Status  string       `json:"kit_status,omitempty"`
}

func newSwapCmd(a *app) *cobra.Command {
	var col, row int
	cmd := &cobra.Command{
		Use:   "swap <kit>",
		Short: "Replace or place a pouch in a kit slot by scanning tags",
		Long: "Replace or place a pouch in the kit slot starting at --col/--row.\n" +
			"Scanned identifiers are read one per line from stdin. Enter 'skip'\n" +
			"to skip scanning the old pouch and 'cancel' to abandon the swap.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMonitor(cmd.Context(), nil)
			if err != nil {
				return err
			}
			k, err := m.Find(args[0])
			if err != nil {
				return err
			}
			s, out, err := m.OpenSession(k.ID, col, row)
			if err != nil {
				return err
			}
			if err := a.reportStep(s, "", out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("%s: %w", out.Message, out.Err)
			}
			defer m.CloseSession(k.ID)

			sc := bufio.NewScanner(a.in)
			for s.State() != swap.Idle {
				if !a.flags.jsonMode {
					fmt.Fprintln(a.out, prompt(s.State()))
				}
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return sysErr(fmt.Errorf("read scans: %w", err))
					}
					s.Cancel()
					return ErrSwapAbandoned
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				var step swap.Outcome
				switch strings.ToLower(line) {
				case "skip":
					step = s.Skip()
				case "cancel":
					step = s.Cancel()
					if err := a.reportStep(s, line, step); err != nil {
						return err
					}
					return nil
				default:
					step = s.Scan(cmd.Context(), line)
				}
				if err := a.reportStep(s, line, step); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&col, "col", 0, "slot column, starting at 0")
	cmd.Flags().IntVar(&row, "row", 0, "slot row, starting at 0")
	return cmd
}

func prompt(st swap.State) string {
	if st == swap.ScanOld {
		return "scan the pouch being removed (or 'skip'):"
	}
	return "scan the replacement pouch:"
}

// reportStep prints one outcome. Rejected scans are reported and the
// operator may scan again.
func (a *app) reportStep(s *swap.Session, input string, out swap.Outcome) error {
	var status string
	if s.Committed() {
		status = string(s.Kit().Status)
	}
	if a.flags.jsonMode {
		return a.printJSONLine(swapLine{Input: input, State: s.State().String(), Outcome: out, Status: status})
	}
	switch {
	case !out.Success && out.Code == swap.CodeTransport:
		fmt.Fprintf(a.out, "failed: %s (scan again to retry)\n", out.Message)
	case !out.Success:
		fmt.Fprintf(a.out, "rejected [%s]: %s\n", out.Code, out.Message)
	default:
		fmt.Fprintln(a.out, out.Message)
	}
	if status != "" && s.State() == swap.Idle {
		fmt.Fprintf(a.out, "kit status: %s\n", types.OperationalStatus(status))
	}
	return nil
}
