package readiness

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Reasons reported alongside a resolved status.
const (
	ReasonStale        = "sync_stale"
	ReasonPreparing    = "in_preparation"
	ReasonNoTemplate   = "template_missing"
	ReasonUnderstocked = "understocked"
	ReasonSlotEmpty    = "slot_empty"
	ReasonModuleStatus = "module_status"
	ReasonExpiry       = "expiry"
	ReasonAllClear     = "all_clear"
)

// Verdict is a resolved status with the rule that produced it.
type Verdict struct {
	Status types.OperationalStatus
	Reason string
	// Detail names the module or slot that tripped the rule, if any.
	Detail string
}

// Resolver derives a kit's operational status. The zero value uses the
// default staleness threshold and warning horizon.
type Resolver struct {
	InUseAfter time.Duration
	Expiry     Classifier
}

// NewResolver builds a Resolver from engine configuration.
func NewResolver(cfg types.Config) Resolver {
	cfg = cfg.WithDefaults()
	return Resolver{
		InUseAfter: cfg.InUseAfter,
		Expiry:     Classifier{WarningDays: cfg.ExpiryWarningDays},
	}
}

// Resolve returns the kit's operational status at now.
func (r Resolver) Resolve(kit *types.Kit, tmpl *types.Template, now time.Time) types.OperationalStatus {
	return r.Evaluate(kit, tmpl, now).Status
}

// ResolveFresh resolves as if the kit were not in preparation. Used when an
// operator explicitly ends preparation.
func (r Resolver) ResolveFresh(kit *types.Kit, tmpl *types.Template, now time.Time) types.OperationalStatus {
	return r.evaluate(kit, tmpl, now, false).Status
}

// Evaluate applies the rules in order, first match wins:
// stale sync, sticky preparation, missing template, understocked,
// per-module status and freshness.
func (r Resolver) Evaluate(kit *types.Kit, tmpl *types.Template, now time.Time) Verdict {
	return r.evaluate(kit, tmpl, now, true)
}

func (r Resolver) evaluate(kit *types.Kit, tmpl *types.Template, now time.Time, sticky bool) Verdict {
	if now.Sub(kit.LastSync) > r.inUseAfter() {
		return Verdict{Status: types.StatusInUse, Reason: ReasonStale}
	}
	if sticky && kit.Preparing() {
		return Verdict{Status: types.StatusInPreparation, Reason: ReasonPreparing}
	}
	if tmpl.Empty() {
		return Verdict{Status: types.StatusNeedsAttention, Reason: ReasonNoTemplate}
	}
	if len(kit.Modules) < len(tmpl.Slots) {
		return Verdict{
			Status: types.StatusNeedsAttention,
			Reason: ReasonUnderstocked,
			Detail: fmt.Sprintf("%d of %d slots filled", len(kit.Modules), len(tmpl.Slots)),
		}
	}
	for _, s := range tmpl.Slots {
		if m := kit.ModuleAt(s.Col, s.Row); m == nil || m.Placeholder {
			return Verdict{
				Status: types.StatusNeedsAttention,
				Reason: ReasonSlotEmpty,
				Detail: fmt.Sprintf("slot %d,%d (%s)", s.Col, s.Row, s.Name),
			}
		}
	}
	for _, m := range kit.Modules {
		if m.Status != types.ModuleOK {
			return Verdict{Status: types.StatusNeedsAttention, Reason: ReasonModuleStatus, Detail: m.ID}
		}
		if r.Expiry.Classify(m.Expiry, now) != types.FreshnessOK {
			return Verdict{Status: types.StatusNeedsAttention, Reason: ReasonExpiry, Detail: m.ID}
		}
	}
	return Verdict{Status: types.StatusOperational, Reason: ReasonAllClear}
}

func (r Resolver) inUseAfter() time.Duration {
	if r.InUseAfter <= 0 {
		return types.DefaultInUseAfter
	}
	return r.InUseAfter
}

// NeedsCorrection reports whether a background recomputation should write
// resolved over recorded. A recorded IN_PREPARATION is never overwritten.
func NeedsCorrection(recorded, resolved types.OperationalStatus) bool {
	if recorded == types.StatusInPreparation {
		return false
	}
	return recorded != resolved
}
