package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysErr(fmt.Errorf("encode output: %w", err))
	}
	return nil
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatSync(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

// position renders a slot origin the way operators count: row, column,
// starting at 1.
func position(p types.Placement) string {
	return "[" + strconv.Itoa(p.Row+1) + "," + strconv.Itoa(p.Col+1) + "]"
}

func (a *app) freshness(m *types.Module, now time.Time) types.Freshness {
	return readiness.Classifier{WarningDays: a.cfg.ExpiryWarningDays}.Classify(m.Expiry, now)
}

// printJSONLine writes v as one compact JSON line, for streamed output.
func (a *app) printJSONLine(v any) error {
	if err := json.NewEncoder(a.out).Encode(v); err != nil {
		return sysErr(fmt.Errorf("encode output: %w", err))
	}
	return nil
}
