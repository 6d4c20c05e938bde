package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// memRepo is an in-memory repository with failure switches. UpdateBackpackStatus
// is called from several goroutines, so every method locks.
type memRepo struct {
	mu        sync.Mutex
	tmpl      *types.Template
	catalog   []types.ContentDefinition
	kits      map[string]*types.Kit
	pool      map[string]*types.Module
	updates   map[string]types.OperationalStatus
	fetchErr  error
	updateErr error
}

func newMemRepo(kits ...*types.Kit) *memRepo {
	r := &memRepo{
		tmpl: testTemplate(),
		catalog: []types.ContentDefinition{
			{Code: "0001", Name: "Bandages"},
			{Code: "0002", Name: "Gauze"},
		},
		kits:    make(map[string]*types.Kit),
		pool:    make(map[string]*types.Module),
		updates: make(map[string]types.OperationalStatus),
	}
	for _, k := range kits {
		r.kits[k.ID] = k
	}
	return r
}

func (r *memRepo) Backpacks(context.Context) ([]*types.Kit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := make([]*types.Kit, 0, len(r.kits))
	for _, k := range r.kits {
		out = append(out, k.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) MasterLayout(_ context.Context, id string) (*types.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tmpl == nil {
		return nil, types.ErrNotFound
	}
	cp := *r.tmpl
	return &cp, nil
}

func (r *memRepo) ModuleByID(_ context.Context, id string) (*types.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.pool[id]; ok {
		return m.Clone(), nil
	}
	for _, k := range r.kits {
		for _, m := range k.Modules {
			if m.ID == id {
				return m.Clone(), nil
			}
		}
	}
	return nil, nil
}

func (r *memRepo) SaveBackpack(_ context.Context, k *types.Kit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kits[k.ID] = k.Clone()
	for _, m := range k.Modules {
		delete(r.pool, m.ID)
	}
	return nil
}

func (r *memRepo) UpdateBackpackStatus(_ context.Context, id string, s types.OperationalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	k, ok := r.kits[id]
	if !ok {
		return types.ErrNotFound
	}
	k.Status = s
	r.updates[id] = s
	return nil
}

func (r *memRepo) DeleteBackpack(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kits, id)
	return nil
}

func (r *memRepo) Catalog(context.Context) ([]types.ContentDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ContentDefinition(nil), r.catalog...), nil
}

func (r *memRepo) Subscribe(context.Context) (types.Subscription, error) {
	return nil, errors.New("not supported")
}

func (r *memRepo) update(id string, fn func(*types.Kit)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.kits[id])
}

func (r *memRepo) recorded(id string) (types.OperationalStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.updates[id]
	return s, ok
}

func testTemplate() *types.Template {
	return &types.Template{
		ID: types.DefaultLayoutID, Cols: 4, Rows: 4,
		Slots: []types.Slot{
			{Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}, Name: "Bandages", Color: "red"},
			{Placement: types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, Name: "Gauze", Color: "blue"},
		},
	}
}

func module(id string, col int, status types.ModuleStatus, kitID string) *types.Module {
	return &types.Module{
		ID: id, Name: "Pouch " + id, Status: status, KitID: kitID,
		Placement: types.Placement{Col: col, Row: 0, Width: 2, Height: 1},
	}
}

// fullKit is fully stocked and recently synced.
func fullKit(id, name string, status types.OperationalStatus) *types.Kit {
	return &types.Kit{
		ID: id, Name: name, QRCode: "QR-" + id, LastSync: testNow.Add(-time.Minute),
		Cols: 4, Rows: 4, Battery: 90, Status: status,
		Modules: []*types.Module{
			module("01010001", 0, types.ModuleOK, id),
			module("02010002", 2, types.ModuleOK, id),
		},
	}
}

func newTestMonitor(repo *memRepo) *Monitor {
	return New(Config{Repo: repo, Now: func() time.Time { return testNow }})
}
