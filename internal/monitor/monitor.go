// Package monitor keeps the fleet snapshot: every kit with its resolved
// status, the master layout and the catalog. It persists status
// corrections, reloads on change signals, owns the open replacement
// sessions and feeds operator alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/smartgrid/internal/layout"
	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/internal/swap"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// ErrSubscriptionClosed is returned by Run when the change stream ends
// before the context does.
var ErrSubscriptionClosed = errors.New("change subscription closed")

// DefaultWorkers bounds concurrent status corrections.
const DefaultWorkers = 4

// Config wires a Monitor to its repository.
type Config struct {
	Repo     types.Repository
	Resolver readiness.Resolver
	// LayoutID defaults to types.DefaultLayoutID.
	LayoutID string
	Logger   *zap.Logger
	// Now defaults to time.Now.
	Now        func() time.Time
	AlertLimit int
	Workers    int
	// OnLoad, if set, is called after every successful Load with the new
	// snapshot and the alerts it raised.
	OnLoad func(kits []*types.Kit, raised []Alert)
}

// Monitor is safe for concurrent use. Snapshot kits are never mutated in
// place; every change installs a new copy.
type Monitor struct {
	cfg    Config
	log    *zap.Logger
	alerts *Feed

	mu       sync.RWMutex
	kits     []*types.Kit
	byID     map[string]*types.Kit
	tmpl     *types.Template
	catalog  []types.ContentDefinition
	loaded   bool
	diag     error
	sessions map[string]*swap.Session
}

// New returns a Monitor with an empty snapshot. Call Load before reading.
func New(cfg Config) *Monitor {
	if cfg.LayoutID == "" {
		cfg.LayoutID = types.DefaultLayoutID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		cfg:      cfg,
		log:      log,
		alerts:   NewFeed(cfg.AlertLimit),
		byID:     make(map[string]*types.Kit),
		sessions: make(map[string]*swap.Session),
	}
}

// Alerts returns the operator feed.
func (m *Monitor) Alerts() *Feed { return m.alerts }

func (m *Monitor) fetch(ctx context.Context) (*types.Template, []types.ContentDefinition, []*types.Kit, error) {
	tmpl, err := m.cfg.Repo.MasterLayout(ctx, m.cfg.LayoutID)
	if errors.Is(err, types.ErrNotFound) {
		tmpl, err = nil, nil
	}
	if err != nil {
		return nil, nil, nil, types.Transport("master layout", err)
	}
	catalog, err := m.cfg.Repo.Catalog(ctx)
	if err != nil {
		return nil, nil, nil, types.Transport("catalog", err)
	}
	kits, err := m.cfg.Repo.Backpacks(ctx)
	if err != nil {
		return nil, nil, nil, types.Transport("backpacks", err)
	}
	return tmpl, catalog, kits, nil
}

// Load fetches the layout, catalog and kits, resolves every kit and writes
// back statuses that drifted. A recorded IN_PREPARATION is never
// overwritten. When fetching fails the previous snapshot stays in place and
// the error is kept as the diagnostic. Failed corrections are also kept as
// the diagnostic but do not block the new snapshot.
func (m *Monitor) Load(ctx context.Context) error {
	tmpl, catalog, kits, err := m.fetch(ctx)
	if err != nil {
		m.mu.Lock()
		m.diag = err
		m.mu.Unlock()
		m.log.Warn("load failed, keeping last known good snapshot", zap.Error(err))
		return err
	}

	now := m.cfg.Now()
	var corrections []*types.Kit
	for _, k := range kits {
		resolved := m.cfg.Resolver.Resolve(k, tmpl, now)
		if readiness.NeedsCorrection(k.Status, resolved) {
			m.log.Debug("correcting kit status",
				zap.String("kit", k.ID),
				zap.String("from", string(k.Status)),
				zap.String("to", string(resolved)))
			k.Status = resolved
			corrections = append(corrections, k)
		}
	}
	diag := m.persist(ctx, corrections)
	if diag == nil && tmpl.Empty() {
		diag = fmt.Errorf("layout %s: %w", m.cfg.LayoutID, types.ErrTemplateMissing)
	}

	m.mu.Lock()
	prev := m.byID
	m.kits = kits
	m.byID = make(map[string]*types.Kit, len(kits))
	for _, k := range kits {
		m.byID[k.ID] = k
	}
	m.tmpl = tmpl
	m.catalog = catalog
	m.loaded = true
	m.diag = diag
	rebase := make(map[*swap.Session]*types.Kit)
	var dropped []*swap.Session
	for id, s := range m.sessions {
		if k, ok := m.byID[id]; ok {
			rebase[s] = k
		} else {
			dropped = append(dropped, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	// Sessions lock themselves and call back into the monitor on commit,
	// so they are touched only after m.mu is released.
	for s, k := range rebase {
		s.Rebase(k)
	}
	for _, s := range dropped {
		s.Cancel()
	}

	raised := diffAlerts(prev, kits, m.cfg.Resolver.Expiry, now)
	for i := range raised {
		raised[i] = m.alerts.Add(raised[i])
	}
	m.log.Debug("fleet loaded",
		zap.Int("kits", len(kits)),
		zap.Int("corrected", len(corrections)),
		zap.Int("alerts", len(raised)))
	if m.cfg.OnLoad != nil {
		m.cfg.OnLoad(m.Kits(), raised)
	}
	return nil
}

// persist writes corrected statuses concurrently and returns the first
// failure.
func (m *Monitor) persist(ctx context.Context, kits []*types.Kit) error {
	var g errgroup.Group
	g.SetLimit(m.cfg.Workers)
	for _, k := range kits {
		id, status := k.ID, k.Status
		g.Go(func() error {
			if err := m.cfg.Repo.UpdateBackpackStatus(ctx, id, status); err != nil {
				m.log.Warn("status correction failed", zap.String("kit", id), zap.Error(err))
				return types.Transport("update backpack status", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run reloads the snapshot on every change signal until ctx is done.
// Signals that pile up during a reload are folded into one.
func (m *Monitor) Run(ctx context.Context, sub types.Subscription) error {
	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.log.Warn("change subscription error", zap.Error(err))
		case ch, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			m.log.Debug("change received", zap.String("table", ch.Table), zap.String("id", ch.ID))
		drain:
			for {
				select {
				case _, ok := <-events:
					if !ok {
						break drain
					}
				default:
					break drain
				}
			}
			if err := m.Load(ctx); err != nil && ctx.Err() != nil {
				return nil
			}
		}
	}
}

// Loaded reports whether at least one Load succeeded.
func (m *Monitor) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Diagnostic returns the problem recorded by the last Load, or nil.
func (m *Monitor) Diagnostic() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.diag
}

// Kits returns copies of every kit, ordered by name.
func (m *Monitor) Kits() []*types.Kit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Kit, len(m.kits))
	for i, k := range m.kits {
		out[i] = k.Clone()
	}
	return out
}

// Kit returns a copy of one kit.
// Returns ErrNotFound if it is not in the snapshot.
func (m *Monitor) Kit(id string) (*types.Kit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
	}
	return k.Clone(), nil
}

// Template returns a copy of the master layout, or nil when none exists.
func (m *Monitor) Template() *types.Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tmpl == nil {
		return nil
	}
	cp := *m.tmpl
	cp.Slots = append([]types.Slot(nil), m.tmpl.Slots...)
	return &cp
}

// Catalog returns a copy of the content catalog.
func (m *Monitor) Catalog() []types.ContentDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ContentDefinition(nil), m.catalog...)
}

// Effective returns the kit's modules as an operator should see them, with
// placeholders for empty slots when the kit needs work.
func (m *Monitor) Effective(id string) ([]*types.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
	}
	eff := layout.Project(k, m.tmpl, m.catalog)
	out := make([]*types.Module, len(eff))
	for i, mod := range eff {
		out[i] = mod.Clone()
	}
	return out, nil
}

// PickList returns the modules of a kit that need work.
func (m *Monitor) PickList(id string) ([]PickItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("kit %s: %w", id, types.ErrNotFound)
	}
	return buildPickList(layout.Project(k, m.tmpl, m.catalog), k.Preparing()), nil
}

// Find looks a kit up the way a scanned QR code is resolved: by ID
// ignoring case, by exact QR payload, or by a name containing code. The
// first kit in name order that matches wins.
func (m *Monitor) Find(code string) (*types.Kit, error) {
	q := strings.TrimSpace(code)
	if q == "" {
		return nil, types.ErrInvalidID
	}
	lower := strings.ToLower(q)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.kits {
		if strings.EqualFold(k.ID, q) ||
			(k.QRCode != "" && k.QRCode == q) ||
			strings.Contains(strings.ToLower(k.Name), lower) {
			return k.Clone(), nil
		}
	}
	return nil, fmt.Errorf("kit %q: %w", q, types.ErrNotFound)
}

// BeginPreparation marks a kit as being filled. Idempotent.
func (m *Monitor) BeginPreparation(ctx context.Context, id string) error {
	k, err := m.Kit(id)
	if err != nil {
		return err
	}
	if k.Preparing() {
		return nil
	}
	if err := m.cfg.Repo.UpdateBackpackStatus(ctx, id, types.StatusInPreparation); err != nil {
		return types.Transport("begin preparation", err)
	}
	m.setStatus(id, types.StatusInPreparation)
	return nil
}

// EndPreparation clears the preparation flag, resolving the kit as if it
// had never been flagged, and persists the result. Returns
// ErrInvalidTransition if the kit is not being prepared.
func (m *Monitor) EndPreparation(ctx context.Context, id string) (types.OperationalStatus, error) {
	k, err := m.Kit(id)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	tmpl := m.tmpl
	m.mu.RUnlock()

	resolved := m.cfg.Resolver.ResolveFresh(k, tmpl, m.cfg.Now())
	if err := k.EndPreparation(resolved); err != nil {
		return "", fmt.Errorf("kit %s: %w", id, err)
	}
	if err := m.cfg.Repo.UpdateBackpackStatus(ctx, id, resolved); err != nil {
		return "", types.Transport("end preparation", err)
	}
	m.setStatus(id, resolved)
	return resolved, nil
}

func (m *Monitor) setStatus(id string, status types.OperationalStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.byID[id]
	if !ok {
		return
	}
	cp := k.Clone()
	cp.Status = status
	m.put(cp, k.Status)
}

// put installs k in the snapshot and notes a status change. The caller
// must hold m.mu.
func (m *Monitor) put(k *types.Kit, was types.OperationalStatus) {
	for i, existing := range m.kits {
		if existing.ID == k.ID {
			m.kits[i] = k
			break
		}
	}
	m.byID[k.ID] = k
	if was != k.Status {
		m.alerts.Add(Alert{
			Level:   LevelInfo,
			Title:   "Status changed",
			Message: fmt.Sprintf("%s is now %s (was %s)", k.Name, k.Status, was),
			KitID:   k.ID,
			At:      m.cfg.Now(),
		})
	}
}

// committed receives a kit saved by a session.
func (m *Monitor) committed(k *types.Kit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.byID[k.ID]
	if !ok {
		return
	}
	m.put(k, prev.Status)
}

// OpenSession starts a replacement session on the slot starting at
// (col, row) of the kit's effective layout, abandoning any session already
// open on that kit. The Outcome reports the first step; when it is not a
// success the returned session is Idle and is not kept. While the kit is
// being prepared only the first empty slot can be opened.
func (m *Monitor) OpenSession(kitID string, col, row int) (*swap.Session, swap.Outcome, error) {
	m.mu.Lock()
	k, ok := m.byID[kitID]
	if !ok {
		m.mu.Unlock()
		return nil, swap.Outcome{}, fmt.Errorf("kit %s: %w", kitID, types.ErrNotFound)
	}
	eff := layout.Project(k, m.tmpl, m.catalog)
	target := layout.Find(eff, col, row)
	var next *types.Module
	if k.Preparing() {
		next = blockedBy(buildPickList(eff, true), target)
	}
	tmpl := m.tmpl
	old := m.sessions[kitID]
	delete(m.sessions, kitID)
	m.mu.Unlock()

	if old != nil {
		old.Cancel()
		m.log.Debug("session abandoned", zap.String("kit", kitID))
	}

	s, out := swap.Open(swap.Config{
		Repo:     m.cfg.Repo,
		Resolver: m.cfg.Resolver,
		Template: tmpl,
		Logger:   m.log,
		Now:      m.cfg.Now,
		OnCommit: m.committed,
	}, k, target)
	if out.Success && next != nil {
		s.Cancel()
		out = swap.Outcome{
			Code:    swap.CodeNotNext,
			Message: fmt.Sprintf("fill the slot at (%d, %d) first", next.Col, next.Row),
			Err:     types.ErrNotNext,
		}
	}
	if out.Success {
		m.mu.Lock()
		m.sessions[kitID] = s
		m.mu.Unlock()
	}
	return s, out, nil
}

// Session returns the open session for a kit.
func (m *Monitor) Session(kitID string) (*swap.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[kitID]
	return s, ok
}

// CloseSession cancels and forgets the kit's session. It reports whether
// one was open.
func (m *Monitor) CloseSession(kitID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[kitID]
	delete(m.sessions, kitID)
	m.mu.Unlock()
	if ok {
		s.Cancel()
	}
	return ok
}
