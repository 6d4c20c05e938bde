package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const kitSelect = `SELECT kit_id, COALESCE(qr_code, ''), name, COALESCE(hospital, ''),
    COALESCE(type, ''), COALESCE(last_sync, ''), COALESCE(battery_level, 100),
    COALESCE(operational_status, ''), COALESCE(NULLIF(grid_cols, 0), 4),
    COALESCE(NULLIF(grid_rows, 0), 4)
FROM kits`

const moduleSelect = `SELECT module_id, COALESCE(name, ''), COALESCE(status, ''),
    COALESCE(last_update, ''), COALESCE(kit_id, ''), COALESCE(color, ''),
    COALESCE(calculated_expiry, ''), COALESCE(pos_x, 0), COALESCE(pos_y, 0),
    COALESCE(width, 1), COALESCE(height, 1)
FROM modules`

type rowScanner interface {
	Scan(dest ...any) error
}

func (b *Backend) scanKit(row rowScanner) (*types.Kit, error) {
	var (
		k              types.Kit
		lastSync, stat string
	)
	if err := row.Scan(&k.ID, &k.QRCode, &k.Name, &k.Site, &k.Type, &lastSync,
		&k.Battery, &stat, &k.Cols, &k.Rows); err != nil {
		return nil, err
	}
	k.LastSync = parseTime(lastSync)
	status, err := types.ParseOperationalStatus(stat)
	if err != nil {
		b.log.Warn("unknown kit status, treating as needs attention",
			zap.String("kit", k.ID), zap.String("status", stat))
		status = types.StatusNeedsAttention
	}
	k.Status = status
	return &k, nil
}

func (b *Backend) scanModule(row rowScanner) (*types.Module, error) {
	var (
		m                        types.Module
		status, updated, expires string
	)
	if err := row.Scan(&m.ID, &m.Name, &status, &updated, &m.KitID, &m.Color,
		&expires, &m.Col, &m.Row, &m.Width, &m.Height); err != nil {
		return nil, err
	}
	m.Status = types.SanitizeModuleStatus(status)
	if string(m.Status) != status {
		b.log.Warn("invalid module status read from store",
			zap.String("module", m.ID), zap.String("status", status))
	}
	m.LastUpdate = parseTime(updated)
	m.Expiry = parseTimePtr(expires)
	m.Placement = m.Placement.Normalized()
	return &m, nil
}

func (b *Backend) queryModules(ctx context.Context, q querier, where string, args ...any) ([]*types.Module, error) {
	rows, err := q.QueryContext(ctx, moduleSelect+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*types.Module
	for rows.Next() {
		m, err := b.scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Backpacks returns every kit with its modules, ordered by name.
func (b *Backend) Backpacks(ctx context.Context) ([]*types.Kit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, kitSelect+" ORDER BY name, kit_id")
	if err != nil {
		return nil, types.Transport("backpacks", err)
	}
	var kits []*types.Kit
	byID := make(map[string]*types.Kit)
	for rows.Next() {
		k, err := b.scanKit(rows)
		if err != nil {
			rows.Close()
			return nil, types.Transport("backpacks", err)
		}
		kits = append(kits, k)
		byID[k.ID] = k
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, types.Transport("backpacks", err)
	}

	mods, err := b.queryModules(ctx, b.db, "WHERE kit_id IS NOT NULL ORDER BY pos_y, pos_x")
	if err != nil {
		return nil, types.Transport("backpacks", err)
	}
	for _, m := range mods {
		if k, ok := byID[m.KitID]; ok {
			k.Modules = append(k.Modules, m)
		}
	}
	return kits, nil
}

// Backpack returns one kit with its modules.
// Returns ErrNotFound if it does not exist.
func (b *Backend) Backpack(ctx context.Context, id string) (*types.Kit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.backpack(ctx, b.db, id)
}

func (b *Backend) backpack(ctx context.Context, q querier, id string) (*types.Kit, error) {
	k, err := b.scanKit(q.QueryRowContext(ctx, kitSelect+" WHERE kit_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, types.Transport("backpack", err)
	}
	k.Modules, err = b.queryModules(ctx, q, "WHERE kit_id = ? ORDER BY pos_y, pos_x", id)
	if err != nil {
		return nil, types.Transport("backpack", err)
	}
	return k, nil
}

// ModuleByID returns the module, or nil and no error when absent.
func (b *Backend) ModuleByID(ctx context.Context, id string) (*types.Module, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.moduleByID(ctx, b.db, id)
}

func (b *Backend) moduleByID(ctx context.Context, q querier, id string) (*types.Module, error) {
	m, err := b.scanModule(q.QueryRowContext(ctx, moduleSelect+" WHERE module_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Transport("module by id", err)
	}
	return m, nil
}

// Modules returns every registered module, most recently updated first.
func (b *Backend) Modules(ctx context.Context) ([]*types.Module, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	mods, err := b.queryModules(ctx, b.db, "ORDER BY last_update DESC, module_id")
	if err != nil {
		return nil, types.Transport("modules", err)
	}
	return mods, nil
}

func validateKit(k *types.Kit) error {
	if k == nil || k.ID == "" {
		return types.ErrInvalidID
	}
	if strings.TrimSpace(k.Name) == "" {
		return types.ErrInvalidName
	}
	if !k.Status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidState, k.Status)
	}
	for i, m := range k.Modules {
		if m.Placeholder || types.IsPlaceholder(m.ID) || !types.ValidIdentifier(m.ID) {
			return fmt.Errorf("%w: module %q is not a real tag", types.ErrInvalidData, m.ID)
		}
		p := m.Placement.Normalized()
		for _, o := range k.Modules[:i] {
			if p.Overlaps(o.Placement.Normalized()) {
				return fmt.Errorf("%w: modules %s and %s", types.ErrOverlap, o.ID, m.ID)
			}
		}
	}
	return nil
}

const upsertKit = `INSERT INTO kits (kit_id, qr_code, name, hospital, type, last_sync,
    battery_level, operational_status, grid_cols, grid_rows)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(kit_id) DO UPDATE SET qr_code = excluded.qr_code, name = excluded.name,
    hospital = excluded.hospital, type = excluded.type, last_sync = excluded.last_sync,
    battery_level = excluded.battery_level, operational_status = excluded.operational_status,
    grid_cols = excluded.grid_cols, grid_rows = excluded.grid_rows`

const upsertModule = `INSERT INTO modules (module_id, name, status, last_update, kit_id,
    color, calculated_expiry, pos_x, pos_y, width, height)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(module_id) DO UPDATE SET name = excluded.name, status = excluded.status,
    last_update = excluded.last_update, kit_id = excluded.kit_id, color = excluded.color,
    calculated_expiry = excluded.calculated_expiry, pos_x = excluded.pos_x,
    pos_y = excluded.pos_y, width = excluded.width, height = excluded.height`

func execUpsertKit(ctx context.Context, q querier, k *types.Kit) error {
	_, err := q.ExecContext(ctx, upsertKit, k.ID, nullString(k.QRCode), k.Name,
		nullString(k.Site), nullString(k.Type), formatTime(k.LastSync), k.Battery,
		string(k.Status), k.Cols, k.Rows)
	return err
}

func execUpsertModule(ctx context.Context, q querier, m *types.Module) error {
	p := m.Placement.Normalized()
	_, err := q.ExecContext(ctx, upsertModule, m.ID, nullString(m.Name), string(m.Status),
		formatTime(m.LastUpdate), nullString(m.KitID), nullString(m.Color),
		formatTimePtr(m.Expiry), p.Col, p.Row, p.Width, p.Height)
	return err
}

// SaveBackpack writes the kit row and all of its modules in one
// transaction. Modules that were in the kit but are no longer listed lose
// their kit reference in the same transaction. Placeholder modules are
// rejected.
func (b *Backend) SaveBackpack(ctx context.Context, kit *types.Kit) error {
	if err := validateKit(kit); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	now := b.now()
	tables := []string{types.KitsTable, types.ModulesTable}
	err := b.update(ctx, "save backpack", kit.ID, tables, func(tx *sql.Tx) error {
		if err := execUpsertKit(ctx, tx, kit); err != nil {
			return fmt.Errorf("saving kit: %w", err)
		}
		ids := make([]any, 0, len(kit.Modules)+2)
		ids = append(ids, formatTime(now), kit.ID)
		for _, m := range kit.Modules {
			cp := *m
			cp.KitID = kit.ID
			if err := execUpsertModule(ctx, tx, &cp); err != nil {
				return fmt.Errorf("saving module %s: %w", m.ID, err)
			}
			ids = append(ids, m.ID)
		}
		release := "UPDATE modules SET kit_id = NULL, last_update = ? WHERE kit_id = ?"
		if n := len(kit.Modules); n > 0 {
			release += " AND module_id NOT IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
		}
		if _, err := tx.ExecContext(ctx, release, ids...); err != nil {
			return fmt.Errorf("releasing departed modules: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Transport("save backpack", err)
	}
	b.log.Debug("kit saved", zap.String("kit", kit.ID), zap.Int("modules", len(kit.Modules)))
	return nil
}

// CreateKit inserts a new kit without modules. An empty ID gets a UUID v7;
// zero grid dimensions, status and sync time get defaults.
// Returns ErrInvalidID if a kit with the ID already exists.
func (b *Backend) CreateKit(ctx context.Context, kit *types.Kit) (*types.Kit, error) {
	k := kit.Clone()
	k.Modules = nil
	if k.ID == "" {
		k.ID = generateUUID()
	}
	if k.Cols == 0 {
		k.Cols = types.DefaultGridCols
	}
	if k.Rows == 0 {
		k.Rows = types.DefaultGridRows
	}
	if k.Status == "" {
		k.Status = types.StatusNeedsAttention
	}
	if k.Battery == 0 {
		k.Battery = 100
	}
	if k.LastSync.IsZero() {
		k.LastSync = b.now()
	}
	if err := validateKit(k); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	var exists int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kits WHERE kit_id = ?", k.ID).Scan(&exists); err != nil {
		return nil, types.Transport("create kit", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: kit %s already exists", types.ErrInvalidID, k.ID)
	}
	if k.QRCode != "" {
		if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kits WHERE qr_code = ?", k.QRCode).Scan(&exists); err != nil {
			return nil, types.Transport("create kit", err)
		}
		if exists > 0 {
			return nil, fmt.Errorf("%w: QR code %s already in use", types.ErrInvalidData, k.QRCode)
		}
	}

	err := b.update(ctx, "create kit", k.ID, []string{types.KitsTable}, func(tx *sql.Tx) error {
		return execUpsertKit(ctx, tx, k)
	})
	if err != nil {
		return nil, types.Transport("create kit", err)
	}
	return k, nil
}

// UpdateBackpackStatus records a new operational status for a kit.
// Returns ErrNotFound if the kit does not exist.
func (b *Backend) UpdateBackpackStatus(ctx context.Context, id string, status types.OperationalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidState, status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	err := b.update(ctx, "update backpack status", id, []string{types.KitsTable}, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE kits SET operational_status = ? WHERE kit_id = ?", string(status), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
		}
		return nil
	})
	if errors.Is(err, types.ErrNotFound) {
		return err
	}
	if err != nil {
		return types.Transport("update backpack status", err)
	}
	return nil
}

// DeleteBackpack removes a kit. Its modules lose their kit reference but
// keep their status.
// Returns ErrNotFound if the kit does not exist.
func (b *Backend) DeleteBackpack(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	var deleted int64
	tables := []string{types.KitsTable, types.ModulesTable}
	err := b.update(ctx, "delete backpack", id, tables, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE modules SET kit_id = NULL, last_update = ? WHERE kit_id = ?",
			formatTime(b.now()), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM kits WHERE kit_id = ?", id)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		if deleted == 0 {
			return fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
		}
		return nil
	})
	if errors.Is(err, types.ErrNotFound) {
		return err
	}
	if err != nil {
		return types.Transport("delete backpack", err)
	}
	return nil
}

// RegisterModule records a freshly scanned tag as a module waiting for
// matchmaking. An empty name is looked up in the catalog by the tag's
// content code. Re-registering an unassigned module resets it.
// Returns ErrFormat for malformed or placeholder identifiers and
// ErrAlreadyAssigned if the module belongs to a kit.
func (b *Backend) RegisterModule(ctx context.Context, id, name, color string) (*types.Module, error) {
	id = types.NormalizeScan(id)
	if !types.ValidIdentifier(id) {
		return nil, fmt.Errorf("%w: %q", types.ErrFormat, id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	if name == "" {
		n, err := b.contentName(ctx, types.Decode(id).Content)
		if err != nil {
			return nil, types.Transport("register module", err)
		}
		name = n
	}
	m, err := types.NewRegistration(id, name, color, b.now())
	if err != nil {
		return nil, err
	}

	existing, err := b.moduleByID(ctx, b.db, id)
	if err != nil {
		return nil, types.Transport("register module", err)
	}
	if existing != nil && existing.Assigned() {
		return nil, fmt.Errorf("%w: module %s is in kit %s", types.ErrAlreadyAssigned, id, existing.KitID)
	}
	if existing != nil {
		m.Expiry = existing.Expiry
	}

	err = b.update(ctx, "register module", id, []string{types.ModulesTable}, func(tx *sql.Tx) error {
		return execUpsertModule(ctx, tx, m)
	})
	if err != nil {
		return nil, types.Transport("register module", err)
	}
	b.log.Info("module registered", zap.String("module", id), zap.String("name", name))
	return m, nil
}
