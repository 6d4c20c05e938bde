package layout

import (
	"fmt"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Content is a (name, color) pair that can be assigned to a slot.
type Content struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CanPlace checks that p fits inside the template grid and overlaps no
// existing slot.
func CanPlace(tmpl *types.Template, p types.Placement) error {
	if !p.Within(tmpl.Cols, tmpl.Rows) {
		return fmt.Errorf("%w: %dx%d at %d,%d on a %dx%d grid",
			types.ErrOutOfBounds, p.Width, p.Height, p.Col, p.Row, tmpl.Cols, tmpl.Rows)
	}
	for _, s := range tmpl.Slots {
		if p.Overlaps(s.Placement) {
			return fmt.Errorf("%w: slot at %d,%d", types.ErrOverlap, s.Col, s.Row)
		}
	}
	return nil
}

// CanAssign checks that content may go into slot idx. A (name, color) pair
// may occupy at most one slot; reassigning it to the slot it already holds
// is allowed.
func CanAssign(tmpl *types.Template, idx int, c Content) error {
	if idx < 0 || idx >= len(tmpl.Slots) {
		return types.ErrSlotNotFound
	}
	if c.Name == "" {
		return types.ErrInvalidName
	}
	for i, s := range tmpl.Slots {
		if i == idx {
			continue
		}
		if s.Name == c.Name && s.Color == c.Color {
			return fmt.Errorf("%w: %s/%s at %d,%d", types.ErrContentInUse, c.Name, c.Color, s.Col, s.Row)
		}
	}
	return nil
}

// Place adds a new, unassigned grey slot at p.
func Place(tmpl *types.Template, p types.Placement) error {
	p = p.Normalized()
	if err := CanPlace(tmpl, p); err != nil {
		return err
	}
	tmpl.Slots = append(tmpl.Slots, types.Slot{Placement: p, Color: "grey"})
	return nil
}

// Assign gives slot idx the content c.
func Assign(tmpl *types.Template, idx int, c Content) error {
	if err := CanAssign(tmpl, idx, c); err != nil {
		return err
	}
	tmpl.Slots[idx].Name = c.Name
	tmpl.Slots[idx].Color = c.Color
	return nil
}

// Remove deletes the slot starting at (col, row).
func Remove(tmpl *types.Template, col, row int) error {
	idx := tmpl.SlotAt(col, row)
	if idx < 0 {
		return types.ErrSlotNotFound
	}
	tmpl.Slots = append(tmpl.Slots[:idx], tmpl.Slots[idx+1:]...)
	return nil
}

// Resize changes the grid dimensions. Shrinking is rejected while a slot
// would fall outside the new bounds.
func Resize(tmpl *types.Template, cols, rows int) error {
	if cols < 1 || rows < 1 {
		return fmt.Errorf("%w: grid must be at least 1x1", types.ErrOutOfBounds)
	}
	for _, s := range tmpl.Slots {
		if !s.Within(cols, rows) {
			return fmt.Errorf("%w: slot at %d,%d", types.ErrOutOfBounds, s.Col, s.Row)
		}
	}
	tmpl.Cols, tmpl.Rows = cols, rows
	return nil
}

// Assignable filters options down to the contents slot idx may receive:
// pairs not used elsewhere, plus whatever the slot already holds.
func Assignable(tmpl *types.Template, idx int, options []Content) []Content {
	var out []Content
	for _, c := range options {
		if CanAssign(tmpl, idx, c) == nil {
			out = append(out, c)
		}
	}
	return out
}
