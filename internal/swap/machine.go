package swap

import (
	"strings"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// State is a step of the scan protocol.
type State int

const (
	Idle State = iota
	ScanOld
	ScanNew
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ScanOld:
		return "SCAN_OLD"
	case ScanNew:
		return "SCAN_NEW"
	}
	return "UNKNOWN"
}

// EventKind enumerates protocol inputs.
type EventKind int

const (
	EventBegin EventKind = iota
	EventScan
	EventSkip
	EventCancel
)

// Event is one protocol input.
type Event struct {
	Kind EventKind
	// Target is the effective module of the selected slot (EventBegin).
	Target *types.Module
	// ID is the scanned identifier (EventScan).
	ID string
	// Candidate is the repository record for ID, nil when unregistered.
	// Only consulted in ScanNew.
	Candidate *types.Module
}

// Machine is the protocol state plus the slot it works on.
type Machine struct {
	State  State
	Target *types.Module
}

// Step applies ev to m. It does no I/O: the ScanNew lookup result arrives
// in ev.Candidate. A successful ScanNew step returns Idle with the accepted
// candidate left for the caller to commit. Failed steps return m unchanged.
func Step(m Machine, ev Event) (Machine, Outcome) {
	switch ev.Kind {
	case EventBegin:
		return begin(ev.Target)
	case EventCancel:
		return Machine{State: Idle}, ok("replacement cancelled")
	case EventSkip:
		if m.State != ScanOld {
			return m, fail(CodeInvalidEvent, types.ErrInvalidTransition,
				"nothing to skip in state %s", m.State)
		}
		return Machine{State: ScanNew, Target: m.Target}, ok("old pouch skipped, scan the new pouch")
	case EventScan:
		switch m.State {
		case ScanOld:
			return scanOld(m, ev.ID)
		case ScanNew:
			return scanNew(m, ev)
		}
		return m, fail(CodeNoSession, types.ErrNoSession, "no slot selected")
	}
	return m, fail(CodeInvalidEvent, types.ErrInvalidTransition, "unknown event")
}

func begin(target *types.Module) (Machine, Outcome) {
	if target == nil {
		return Machine{State: Idle}, fail(CodeNoSession, types.ErrSlotNotFound, "target slot not found")
	}
	switch target.Status {
	case types.ModuleOK:
		return Machine{State: Idle}, fail(CodeNothingToDo, types.ErrNothingToReplace,
			"pouch %s is OK, nothing to replace", target.ID)
	case types.ModuleMissing:
		return Machine{State: ScanNew, Target: target}, ok("scan the new pouch")
	}
	return Machine{State: ScanOld, Target: target},
		ok("scan the old pouch " + types.Format(target.ID))
}

func scanOld(m Machine, id string) (Machine, Outcome) {
	if strings.TrimSpace(id) != strings.TrimSpace(m.Target.ID) {
		return m, fail(CodeWrongModule, types.ErrWrongModule,
			"wrong pouch scanned, expected %s", m.Target.ID)
	}
	return Machine{State: ScanNew, Target: m.Target}, ok("old pouch verified, scan the new pouch")
}

func scanNew(m Machine, ev Event) (Machine, Outcome) {
	c := ev.Candidate
	if c == nil {
		return m, fail(CodeNotRegistered, types.ErrNotRegistered,
			"pouch %s is not registered", strings.TrimSpace(ev.ID))
	}
	if c.Assigned() {
		return m, fail(CodeAlreadyAssigned, types.ErrAlreadyAssigned,
			"pouch is already assigned to kit %s", c.KitID)
	}
	if c.Status != types.ModuleWaiting {
		return m, fail(CodeNotAvailable, types.ErrNotAvailable,
			"pouch is not available (status %s)", c.Status)
	}
	out := Validate(m.Target.Ref(), ev.ID)
	if !out.Success {
		return m, out
	}
	return Machine{State: Idle}, out
}
