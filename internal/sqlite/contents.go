package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

const contentSelect = `SELECT content_id, module_id, COALESCE(article_name, ''),
    COALESCE(batch_number, ''), COALESCE(expiry_date, ''), COALESCE(quantity, 1)
FROM module_contents`

func (b *Backend) queryContents(ctx context.Context, q querier, moduleID string) ([]types.ModuleContent, error) {
	rows, err := q.QueryContext(ctx, contentSelect+" WHERE module_id = ? ORDER BY expiry_date, content_id", moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.ModuleContent
	for rows.Next() {
		var (
			c      types.ModuleContent
			expiry string
		)
		if err := rows.Scan(&c.ID, &c.ModuleID, &c.ArticleName, &c.BatchNumber, &expiry, &c.Quantity); err != nil {
			return nil, err
		}
		c.Expiry = parseTime(expiry)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ModuleContents lists what was packed into a module, soonest expiry first.
func (b *Backend) ModuleContents(ctx context.Context, moduleID string) ([]types.ModuleContent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	out, err := b.queryContents(ctx, b.db, moduleID)
	if err != nil {
		return nil, types.Transport("module contents", err)
	}
	return out, nil
}

// recalculateExpiry stores the earliest content expiry on the module.
func (b *Backend) recalculateExpiry(ctx context.Context, tx *sql.Tx, moduleID string) (*types.Module, error) {
	contents, err := b.queryContents(ctx, tx, moduleID)
	if err != nil {
		return nil, err
	}
	earliest := types.EarliestExpiry(contents)
	if _, err := tx.ExecContext(ctx, "UPDATE modules SET calculated_expiry = ?, last_update = ? WHERE module_id = ?",
		formatTimePtr(earliest), formatTime(b.now()), moduleID); err != nil {
		return nil, err
	}
	return b.moduleByID(ctx, tx, moduleID)
}

// AddModuleContent records packed contents for a module and recomputes the
// module's expiry.
// Returns ErrNotFound if the module is not registered.
func (b *Backend) AddModuleContent(ctx context.Context, c types.ModuleContent) (types.ModuleContent, error) {
	if strings.TrimSpace(c.ArticleName) == "" {
		return c, types.ErrInvalidName
	}
	if c.Quantity == 0 {
		c.Quantity = 1
	}
	if c.Quantity < 0 {
		return c, fmt.Errorf("%w: negative quantity", types.ErrInvalidData)
	}
	if c.ID == "" {
		c.ID = generateUUID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return c, types.ErrDetached
	}

	m, err := b.moduleByID(ctx, b.db, c.ModuleID)
	if err != nil {
		return c, types.Transport("add module content", err)
	}
	if m == nil {
		return c, fmt.Errorf("module %s: %w", c.ModuleID, types.ErrNotFound)
	}

	tables := []string{types.ModulesTable, types.ModuleContentsTable}
	err = b.update(ctx, "add module content", c.ModuleID, tables, func(tx *sql.Tx) error {
		var expiry any
		if !c.Expiry.IsZero() {
			expiry = c.Expiry.UTC().Format(dateLayout)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO module_contents
    (content_id, module_id, article_name, batch_number, expiry_date, quantity)
VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.ModuleID, c.ArticleName, nullString(c.BatchNumber), expiry, c.Quantity); err != nil {
			return err
		}
		m, err = b.recalculateExpiry(ctx, tx, c.ModuleID)
		return err
	})
	if err != nil {
		return c, types.Transport("add module content", err)
	}
	b.log.Debug("module content added", zap.String("module", c.ModuleID), zap.Timep("expiry", m.Expiry))
	return c, nil
}

// ClearModuleContents removes all contents of a module and clears its
// expiry.
func (b *Backend) ClearModuleContents(ctx context.Context, moduleID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	tables := []string{types.ModulesTable, types.ModuleContentsTable}
	err := b.update(ctx, "clear module contents", moduleID, tables, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM module_contents WHERE module_id = ?", moduleID); err != nil {
			return err
		}
		_, err := b.recalculateExpiry(ctx, tx, moduleID)
		return err
	})
	if err != nil {
		return types.Transport("clear module contents", err)
	}
	return nil
}
