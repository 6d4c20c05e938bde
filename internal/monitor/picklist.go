package monitor

import "github.com/mesh-intelligence/smartgrid/pkg/types"

// Action is the verb shown next to a module that needs work.
type Action string

// Pick list actions.
const (
	ActionReplace Action = "replace"
	ActionPlace   Action = "place"
	ActionMove    Action = "move"
	ActionCheck   Action = "check"
)

// PickItem is one module needing work.
type PickItem struct {
	Module *types.Module `json:"module"`
	Action Action        `json:"action"`
	// Actionable is false for missing slots queued behind the current
	// preparation step.
	Actionable bool `json:"actionable"`
	// Next marks the missing slot to fill first while preparing.
	Next bool `json:"next,omitempty"`
}

func actionFor(s types.ModuleStatus) Action {
	switch s {
	case types.ModuleOpened:
		return ActionReplace
	case types.ModuleMissing:
		return ActionPlace
	case types.ModuleWrongPos:
		return ActionMove
	}
	return ActionCheck
}

// buildPickList lists every effective module whose status is not OK, in
// effective order. While preparing, only the first missing slot can be
// worked on; other statuses stay actionable.
func buildPickList(effective []*types.Module, preparing bool) []PickItem {
	var items []PickItem
	firstMissing := -1
	for _, m := range effective {
		if m.Status == types.ModuleOK {
			continue
		}
		it := PickItem{Module: m.Clone(), Action: actionFor(m.Status), Actionable: true}
		if preparing && m.Status == types.ModuleMissing {
			if firstMissing < 0 {
				firstMissing = len(items)
				it.Next = true
			} else {
				it.Actionable = false
			}
		}
		items = append(items, it)
	}
	return items
}

// blockedBy returns the slot that has to be filled before target, or nil
// when target is actionable or not on the list.
func blockedBy(items []PickItem, target *types.Module) *types.Module {
	if target == nil {
		return nil
	}
	var next *types.Module
	blocked := false
	for _, it := range items {
		if it.Next {
			next = it.Module
		}
		if it.Module.Placement.SameOrigin(target.Placement) && !it.Actionable {
			blocked = true
		}
	}
	if !blocked {
		return nil
	}
	return next
}
