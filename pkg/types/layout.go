package types

// DefaultLayoutID names the master layout used when none is configured.
const DefaultLayoutID = "default_mug"

// Slot is one expected position in a master layout. It names the content
// family that belongs there but carries no identifier and no status.
type Slot struct {
	Placement
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Template is the canonical grid that defines a fully stocked kit.
type Template struct {
	ID    string `json:"id"`
	Cols  int    `json:"grid_cols"`
	Rows  int    `json:"grid_rows"`
	Slots []Slot `json:"slots"`
}

// Empty reports whether t is absent or has no slots.
func (t *Template) Empty() bool {
	return t == nil || len(t.Slots) == 0
}

// SlotAt returns the index of the slot starting at (col, row), or -1.
func (t *Template) SlotAt(col, row int) int {
	if t == nil {
		return -1
	}
	for i, s := range t.Slots {
		if s.Col == col && s.Row == row {
			return i
		}
	}
	return -1
}
