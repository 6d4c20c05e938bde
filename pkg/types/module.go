package types

import "time"

// Placement is a rectangle on a kit grid, in cells. Width and Height are
// spans and are at least one.
type Placement struct {
	Col    int `json:"pos_x"`
	Row    int `json:"pos_y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Normalized returns p with zero or negative spans defaulted to one.
func (p Placement) Normalized() Placement {
	if p.Width < 1 {
		p.Width = 1
	}
	if p.Height < 1 {
		p.Height = 1
	}
	return p
}

// SameOrigin reports whether p and o start at the same cell. Slots are keyed
// by their top-left cell.
func (p Placement) SameOrigin(o Placement) bool {
	return p.Col == o.Col && p.Row == o.Row
}

// Overlaps reports whether the two rectangles intersect on both axes.
func (p Placement) Overlaps(o Placement) bool {
	return p.Col < o.Col+o.Width && p.Col+p.Width > o.Col &&
		p.Row < o.Row+o.Height && p.Row+p.Height > o.Row
}

// Within reports whether p lies inside a cols x rows grid.
func (p Placement) Within(cols, rows int) bool {
	return p.Col >= 0 && p.Row >= 0 && p.Width >= 1 && p.Height >= 1 &&
		p.Col+p.Width <= cols && p.Row+p.Height <= rows
}

// Module is a physical RFID-tagged pouch.
type Module struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     ModuleStatus `json:"status"`
	Color      string       `json:"color,omitempty"`
	LastUpdate time.Time    `json:"last_update"`
	KitID      string       `json:"backpack_id,omitempty"`
	Expiry     *time.Time   `json:"calculated_expiry,omitempty"`
	Placement

	// Placeholder marks a module synthesized for an unfilled slot. It is
	// never persisted.
	Placeholder bool `json:"placeholder,omitempty"`
}

// NewRegistration creates an unattached module for a freshly scanned tag.
// The only valid state for such a module is ModuleWaiting with no kit.
func NewRegistration(id, name, color string, now time.Time) (*Module, error) {
	id = NormalizeScan(id)
	if !ValidIdentifier(id) {
		return nil, ErrFormat
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Module{
		ID:         id,
		Name:       name,
		Status:     ModuleWaiting,
		Color:      color,
		LastUpdate: now,
		Placement:  Placement{Width: 1, Height: 1},
	}, nil
}

// Ref returns the slot reference for this module.
func (m *Module) Ref() SlotRef {
	if m.Placeholder {
		p := Decode(m.ID)
		return EmptySlot(p.Color, p.Content)
	}
	return ParseSlotRef(m.ID)
}

// Assigned reports whether the module belongs to a kit.
func (m *Module) Assigned() bool {
	return m.KitID != ""
}

// Available reports whether the module can be matched into a kit.
func (m *Module) Available() bool {
	return !m.Assigned() && m.Status == ModuleWaiting
}

// AssignTo moves the module into a kit slot. The slot's placement and spans
// are copied onto the module and its status becomes ModuleOK.
func (m *Module) AssignTo(kitID string, at Placement, now time.Time) {
	m.KitID = kitID
	m.Placement = at.Normalized()
	m.Status = ModuleOK
	m.LastUpdate = now
}

// Release detaches the module from its kit and returns it to the
// matchmaking pool.
func (m *Module) Release(now time.Time) {
	m.KitID = ""
	m.Status = ModuleWaiting
	m.LastUpdate = now
}

// Clone returns a deep copy of m.
func (m *Module) Clone() *Module {
	cp := *m
	if m.Expiry != nil {
		e := *m.Expiry
		cp.Expiry = &e
	}
	return &cp
}
