// Package layout overlays kits onto their master layout and validates
// changes to the layout itself.
package layout

import (
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Color codes as encoded in the first two digits of a tag identifier.
const (
	ColorCodeGrey   = "00"
	ColorCodeRed    = "01"
	ColorCodeBlue   = "02"
	ColorCodeYellow = "03"
	ColorCodeGreen  = "04"
)

var colorCodes = map[string]string{
	"red":    ColorCodeRed,
	"blue":   ColorCodeBlue,
	"yellow": ColorCodeYellow,
	"green":  ColorCodeGreen,
	"grey":   ColorCodeGrey,
}

// ColorCode returns the identifier color code for a color name. Unset and
// unknown colors map to grey.
func ColorCode(color string) string {
	if code, ok := colorCodes[color]; ok {
		return code
	}
	return ColorCodeGrey
}

// ColorName is the inverse of ColorCode; unknown codes return "grey".
func ColorName(code string) string {
	for name, c := range colorCodes {
		if c == code {
			return name
		}
	}
	return "grey"
}

// CatalogCode returns the four-digit code of the catalog entry named name,
// or "0000" if there is none.
func CatalogCode(catalog []types.ContentDefinition, name string) string {
	for _, c := range catalog {
		if c.Name == name {
			return types.PadCode(c.Code)
		}
	}
	return "0000"
}

// ContentName returns the catalog name for a content code, or
// types.UnknownContentName.
func ContentName(catalog []types.ContentDefinition, code string) string {
	code = types.PadCode(code)
	for _, c := range catalog {
		if types.PadCode(c.Code) == code {
			return c.Name
		}
	}
	return types.UnknownContentName
}

// Project returns the effective module list of a kit. Kits that are neither
// NEEDS_ATTENTION nor IN_PREPARATION get their own module slice back as is.
// Otherwise each template slot yields the kit's real module at that slot or
// a synthesized MISSING placeholder. The result is for display and for
// driving replacements; placeholders must never be persisted.
func Project(kit *types.Kit, tmpl *types.Template, catalog []types.ContentDefinition) []*types.Module {
	if kit.Status != types.StatusNeedsAttention && kit.Status != types.StatusInPreparation {
		return kit.Modules
	}
	if tmpl.Empty() {
		return kit.Modules
	}

	out := make([]*types.Module, 0, len(tmpl.Slots))
	for _, s := range tmpl.Slots {
		if actual := kit.ModuleAt(s.Col, s.Row); actual != nil {
			out = append(out, actual)
			continue
		}
		out = append(out, Placeholder(kit.ID, s, catalog))
	}
	return out
}

// Placeholder synthesizes the MISSING module that stands in for an unfilled
// slot.
func Placeholder(kitID string, s types.Slot, catalog []types.ContentDefinition) *types.Module {
	ref := types.EmptySlot(ColorCode(s.Color), CatalogCode(catalog, s.Name))
	return &types.Module{
		ID:          ref.String(),
		Name:        s.Name,
		Status:      types.ModuleMissing,
		Color:       s.Color,
		KitID:       kitID,
		Placement:   s.Placement.Normalized(),
		Placeholder: true,
	}
}

// Find returns the module of an effective list whose slot starts at
// (col, row), or nil.
func Find(effective []*types.Module, col, row int) *types.Module {
	for _, m := range effective {
		if m.Col == col && m.Row == row {
			return m
		}
	}
	return nil
}
