package types

import "time"

// Default grid dimensions for kits and layouts stored without them.
const (
	DefaultGridCols = 4
	DefaultGridRows = 4
)

// Kit is a backpack: a grid of slots holding modules.
type Kit struct {
	ID       string            `json:"id"`
	QRCode   string            `json:"qr_code"`
	Name     string            `json:"name"`
	Site     string            `json:"hospital"`
	Type     string            `json:"type"`
	LastSync time.Time         `json:"last_sync"`
	Battery  int               `json:"battery_level"`
	Cols     int               `json:"grid_cols"`
	Rows     int               `json:"grid_rows"`
	Status   OperationalStatus `json:"operational_status"`
	Modules  []*Module         `json:"modules"`
}

// Preparing reports whether the sticky preparation flag is set.
func (k *Kit) Preparing() bool {
	return k.Status == StatusInPreparation
}

// BeginPreparation records that an operator is filling the kit. The flag
// survives background recomputation until EndPreparation clears it.
// Idempotent.
func (k *Kit) BeginPreparation() {
	k.Status = StatusInPreparation
}

// EndPreparation clears the preparation flag and records the status
// resolved without it. Returns ErrInvalidTransition if the kit is not being
// prepared, and ErrInvalidState if resolved is itself IN_PREPARATION.
func (k *Kit) EndPreparation(resolved OperationalStatus) error {
	if !k.Preparing() {
		return ErrInvalidTransition
	}
	if !resolved.Valid() || resolved == StatusInPreparation {
		return ErrInvalidState
	}
	k.Status = resolved
	return nil
}

// ModuleAt returns the module whose slot starts at (col, row), or nil.
func (k *Kit) ModuleAt(col, row int) *Module {
	for _, m := range k.Modules {
		if m.Col == col && m.Row == row {
			return m
		}
	}
	return nil
}

// Place puts m into the kit, evicting whatever module started at the same
// cell. The evicted module, if any, is returned.
func (k *Kit) Place(m *Module) *Module {
	var evicted *Module
	kept := make([]*Module, 0, len(k.Modules)+1)
	for _, existing := range k.Modules {
		if existing.SameOrigin(m.Placement) {
			evicted = existing
			continue
		}
		kept = append(kept, existing)
	}
	k.Modules = append(kept, m)
	return evicted
}

// Clone returns a deep copy of k, modules included.
func (k *Kit) Clone() *Kit {
	cp := *k
	cp.Modules = make([]*Module, len(k.Modules))
	for i, m := range k.Modules {
		cp.Modules[i] = m.Clone()
	}
	return &cp
}
