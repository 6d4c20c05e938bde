package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// MasterLayout returns the template with the given ID, slots ordered by
// row then column.
// Returns ErrNotFound if it does not exist.
func (b *Backend) MasterLayout(ctx context.Context, id string) (*types.Template, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	t := &types.Template{ID: id}
	err := b.db.QueryRowContext(ctx, "SELECT grid_cols, grid_rows FROM layouts WHERE layout_id = ?", id).
		Scan(&t.Cols, &t.Rows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("layout %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, types.Transport("master layout", err)
	}

	rows, err := b.db.QueryContext(ctx, `SELECT COALESCE(name, ''), COALESCE(color, ''),
    pos_x, pos_y, width, height
FROM layout_slots WHERE layout_id = ? ORDER BY pos_y, pos_x`, id)
	if err != nil {
		return nil, types.Transport("master layout", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s types.Slot
		if err := rows.Scan(&s.Name, &s.Color, &s.Col, &s.Row, &s.Width, &s.Height); err != nil {
			return nil, types.Transport("master layout", err)
		}
		s.Placement = s.Placement.Normalized()
		t.Slots = append(t.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Transport("master layout", err)
	}
	return t, nil
}

// validateTemplate checks grid size, bounds and overlap of every slot.
func validateTemplate(t *types.Template) error {
	if t == nil || t.ID == "" {
		return types.ErrInvalidID
	}
	if t.Cols < 1 || t.Rows < 1 {
		return fmt.Errorf("%w: grid %dx%d", types.ErrOutOfBounds, t.Cols, t.Rows)
	}
	for i, s := range t.Slots {
		if !s.Within(t.Cols, t.Rows) {
			return fmt.Errorf("%w: slot at %d,%d", types.ErrOutOfBounds, s.Col, s.Row)
		}
		for _, o := range t.Slots[i+1:] {
			if s.Overlaps(o.Placement) {
				return fmt.Errorf("%w: slots at %d,%d and %d,%d", types.ErrOverlap, s.Col, s.Row, o.Col, o.Row)
			}
		}
	}
	return nil
}

// SaveMasterLayout replaces a template's grid size and slots in one
// transaction, creating the template if needed.
func (b *Backend) SaveMasterLayout(ctx context.Context, t *types.Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	tables := []string{types.LayoutsTable, types.LayoutSlotsTable}
	err := b.update(ctx, "save master layout", t.ID, tables, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO layouts (layout_id, grid_cols, grid_rows) VALUES (?, ?, ?)
ON CONFLICT(layout_id) DO UPDATE SET grid_cols = excluded.grid_cols, grid_rows = excluded.grid_rows`,
			t.ID, t.Cols, t.Rows); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM layout_slots WHERE layout_id = ?", t.ID); err != nil {
			return err
		}
		for _, s := range t.Slots {
			p := s.Placement.Normalized()
			if _, err := tx.ExecContext(ctx, `INSERT INTO layout_slots
    (slot_id, layout_id, name, color, pos_x, pos_y, width, height)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				generateUUID(), t.ID, nullString(s.Name), nullString(s.Color),
				p.Col, p.Row, p.Width, p.Height); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.Transport("save master layout", err)
	}
	return nil
}
