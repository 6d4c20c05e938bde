package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// fakeRepo serves modules from a map and records saved kits.
type fakeRepo struct {
	modules   map[string]*types.Module
	saved     []*types.Kit
	lookupErr error
	saveErr   error
}

func (f *fakeRepo) Backpacks(context.Context) ([]*types.Kit, error) { return nil, nil }
func (f *fakeRepo) MasterLayout(context.Context, string) (*types.Template, error) {
	return nil, types.ErrNotFound
}
func (f *fakeRepo) ModuleByID(_ context.Context, id string) (*types.Module, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if m, ok := f.modules[id]; ok {
		return m.Clone(), nil
	}
	return nil, nil
}
func (f *fakeRepo) SaveBackpack(_ context.Context, k *types.Kit) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, k.Clone())
	return nil
}
func (f *fakeRepo) UpdateBackpackStatus(context.Context, string, types.OperationalStatus) error {
	return nil
}
func (f *fakeRepo) DeleteBackpack(context.Context, string) error { return nil }
func (f *fakeRepo) Catalog(context.Context) ([]types.ContentDefinition, error) {
	return nil, nil
}
func (f *fakeRepo) Subscribe(context.Context) (types.Subscription, error) {
	return nil, errors.New("not supported")
}

func sessionTemplate() *types.Template {
	return &types.Template{
		ID: types.DefaultLayoutID, Cols: 4, Rows: 4,
		Slots: []types.Slot{
			{Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}, Name: "Bandages", Color: "red"},
			{Placement: types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, Name: "Gauze", Color: "blue"},
		},
	}
}

func sessionKit() *types.Kit {
	gauze := &types.Module{
		ID: "02010002", Status: types.ModuleOK, KitID: "kit-1",
		Placement: types.Placement{Col: 2, Row: 0, Width: 2, Height: 1},
	}
	return &types.Kit{
		ID: "kit-1", Name: "MUG-01", LastSync: testNow.Add(-time.Minute),
		Status:  types.StatusNeedsAttention,
		Modules: []*types.Module{opened(), gauze},
	}
}

func newRepo() *fakeRepo {
	return &fakeRepo{modules: map[string]*types.Module{
		"01050001": waiting("01050001"),
		"02050001": waiting("02050001"),
	}}
}

func sessionConfig(repo *fakeRepo) Config {
	return Config{
		Repo:     repo,
		Template: sessionTemplate(),
		Now:      func() time.Time { return testNow },
	}
}

func TestSessionReplacement(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()
	var committed *types.Kit
	cfg := sessionConfig(repo)
	cfg.OnCommit = func(k *types.Kit) { committed = k }

	s, out := Open(cfg, kit, kit.Modules[0])
	require.True(t, out.Success)
	assert.Equal(t, ScanOld, s.State())

	out = s.Scan(context.Background(), "01010009")
	assert.Equal(t, CodeWrongModule, out.Code)
	assert.Equal(t, ScanOld, s.State())

	out = s.Scan(context.Background(), "01010001")
	require.True(t, out.Success)
	assert.Equal(t, ScanNew, s.State())

	out = s.Scan(context.Background(), "02050001")
	assert.Equal(t, CodeColorMismatch, out.Code)
	assert.Equal(t, ScanNew, s.State(), "compatibility failures keep the step")

	out = s.Scan(context.Background(), "01050001")
	require.True(t, out.Success, out.Message)
	assert.False(t, out.Placement)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Committed())
	assert.Nil(t, s.Target())

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, types.StatusOperational, saved.Status)
	require.Len(t, saved.Modules, 2)
	placed := saved.ModuleAt(0, 0)
	require.NotNil(t, placed)
	assert.Equal(t, "01050001", placed.ID)
	assert.Equal(t, types.ModuleOK, placed.Status)
	assert.Equal(t, "kit-1", placed.KitID)
	assert.Equal(t, 2, placed.Width)
	assert.Equal(t, testNow, placed.LastUpdate)

	require.NotNil(t, committed)
	assert.Equal(t, types.StatusOperational, committed.Status)
	assert.Equal(t, types.StatusOperational, s.Kit().Status)
	assert.Equal(t, types.StatusNeedsAttention, kit.Status, "caller's kit is not mutated")
}

func TestSessionPlacementIntoEmptySlot(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()
	kit.Modules = kit.Modules[1:]

	s, out := Open(sessionConfig(repo), kit, missing())
	require.True(t, out.Success)
	assert.Equal(t, ScanNew, s.State())

	out = s.Scan(context.Background(), "01 05 0001")
	require.True(t, out.Success, out.Message)
	assert.True(t, out.Placement)
	require.Len(t, repo.saved, 1)
	assert.Len(t, repo.saved[0].Modules, 2)
	assert.Equal(t, types.StatusOperational, repo.saved[0].Status)
}

func TestSessionSkipAndCancel(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()

	s, _ := Open(sessionConfig(repo), kit, kit.Modules[0])
	require.True(t, s.Skip().Success)
	assert.Equal(t, ScanNew, s.State())

	require.True(t, s.Cancel().Success)
	assert.Equal(t, Idle, s.State())
	assert.Nil(t, s.Target())

	out := s.Scan(context.Background(), "01050001")
	assert.Equal(t, CodeNoSession, out.Code)
	assert.Empty(t, repo.saved)
}

func TestSessionLookupFailures(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()
	s, _ := Open(sessionConfig(repo), kit, missing())

	out := s.Scan(context.Background(), "01990001")
	assert.Equal(t, CodeNotRegistered, out.Code)

	repo.lookupErr = errors.New("connection reset")
	out = s.Scan(context.Background(), "01050001")
	assert.Equal(t, CodeTransport, out.Code)
	assert.True(t, types.IsTransport(out.Err))
	assert.Equal(t, ScanNew, s.State())
}

func TestSessionCommitFailureKeepsStep(t *testing.T) {
	repo := newRepo()
	repo.saveErr = errors.New("disk full")
	kit := sessionKit()
	s, _ := Open(sessionConfig(repo), kit, missing())

	out := s.Scan(context.Background(), "01050001")
	assert.False(t, out.Success)
	assert.Equal(t, CodeTransport, out.Code)
	assert.True(t, types.IsTransport(out.Err))
	assert.Equal(t, ScanNew, s.State())
	assert.False(t, s.Committed())
	assert.Equal(t, types.StatusNeedsAttention, s.Kit().Status)
	assert.Equal(t, "01010001", s.Kit().ModuleAt(0, 0).ID, "failed save leaves the session's kit untouched")

	repo.saveErr = nil
	out = s.Scan(context.Background(), "01050001")
	require.True(t, out.Success, out.Message)
	assert.Len(t, repo.saved, 1)
}

func TestSessionRebaseKeepsTarget(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()
	s, _ := Open(sessionConfig(repo), kit, kit.Modules[0])
	require.True(t, s.Scan(context.Background(), "01010001").Success)

	fresh := sessionKit()
	fresh.Name = "MUG-01 renamed"
	s.Rebase(fresh)

	assert.Equal(t, ScanNew, s.State())
	assert.Equal(t, "01010001", s.Target().ID)
	assert.Equal(t, "MUG-01 renamed", s.Kit().Name)
}

func TestSessionUsesResolver(t *testing.T) {
	repo := newRepo()
	kit := sessionKit()
	kit.LastSync = testNow.Add(-20 * time.Minute)
	cfg := sessionConfig(repo)
	cfg.Resolver = readiness.Resolver{InUseAfter: time.Hour}

	s, _ := Open(cfg, kit, missing())
	require.True(t, s.Scan(context.Background(), "01050001").Success)
	assert.Equal(t, types.StatusOperational, repo.saved[0].Status)

	cfg.Resolver = readiness.Resolver{}
	s, _ = Open(cfg, kit, missing())
	require.True(t, s.Scan(context.Background(), "01050001").Success)
	assert.Equal(t, types.StatusInUse, repo.saved[1].Status)
}
