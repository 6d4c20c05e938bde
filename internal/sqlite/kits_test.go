package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func registerAll(t *testing.T, b *Backend, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := b.RegisterModule(context.Background(), id, "Pouch "+id, "red")
		require.NoError(t, err)
	}
}

func stockedKit(t *testing.T, b *Backend) *types.Kit {
	t.Helper()
	ctx := context.Background()
	k, err := b.CreateKit(ctx, &types.Kit{ID: "kit-1", Name: "MUG-01", QRCode: "QR-1", Site: "North"})
	require.NoError(t, err)
	registerAll(t, b, "01010001", "02010002")

	a, err := b.ModuleByID(ctx, "01010001")
	require.NoError(t, err)
	a.AssignTo(k.ID, types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}, testNow)
	c, err := b.ModuleByID(ctx, "02010002")
	require.NoError(t, err)
	c.AssignTo(k.ID, types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, testNow)
	k.Modules = []*types.Module{a, c}
	k.Status = types.StatusOperational
	require.NoError(t, b.SaveBackpack(ctx, k))
	return k
}

func TestCreateKitDefaults(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	k, err := b.CreateKit(ctx, &types.Kit{Name: "MUG-02"})
	require.NoError(t, err)
	_, err = uuid.Parse(k.ID)
	assert.NoError(t, err, "generated ID should be a UUID")
	assert.Equal(t, types.DefaultGridCols, k.Cols)
	assert.Equal(t, types.DefaultGridRows, k.Rows)
	assert.Equal(t, types.StatusNeedsAttention, k.Status)
	assert.Equal(t, 100, k.Battery)
	assert.Equal(t, testNow, k.LastSync)

	got, err := b.Backpack(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, "MUG-02", got.Name)
	assert.True(t, testNow.Equal(got.LastSync))

	_, err = b.CreateKit(ctx, &types.Kit{ID: k.ID, Name: "dup"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.CreateKit(ctx, &types.Kit{Name: "  "})
	assert.ErrorIs(t, err, types.ErrInvalidName)
}

func TestCreateKitUniqueQRCode(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.CreateKit(ctx, &types.Kit{Name: "A", QRCode: "QR-9"})
	require.NoError(t, err)
	_, err = b.CreateKit(ctx, &types.Kit{Name: "B", QRCode: "QR-9"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
	_, err = b.CreateKit(ctx, &types.Kit{Name: "C"})
	assert.NoError(t, err)
	_, err = b.CreateKit(ctx, &types.Kit{Name: "D"})
	assert.NoError(t, err, "empty QR codes do not collide")
}

func TestSaveBackpackRoundTrip(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	stockedKit(t, b)

	kits, err := b.Backpacks(ctx)
	require.NoError(t, err)
	require.Len(t, kits, 1)
	k := kits[0]
	assert.Equal(t, types.StatusOperational, k.Status)
	assert.Equal(t, "QR-1", k.QRCode)
	assert.Equal(t, "North", k.Site)
	require.Len(t, k.Modules, 2)
	assert.Equal(t, "01010001", k.Modules[0].ID)
	assert.Equal(t, types.ModuleOK, k.Modules[0].Status)
	assert.Equal(t, "kit-1", k.Modules[0].KitID)
	assert.Equal(t, types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, k.Modules[1].Placement)
}

func TestSaveBackpackReleasesDepartedModules(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	k := stockedKit(t, b)
	registerAll(t, b, "01020001")

	fresh, err := b.ModuleByID(ctx, "01020001")
	require.NoError(t, err)
	fresh.AssignTo(k.ID, types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}, testNow)
	evicted := k.Place(fresh)
	require.NotNil(t, evicted)
	require.NoError(t, b.SaveBackpack(ctx, k))

	old, err := b.ModuleByID(ctx, "01010001")
	require.NoError(t, err)
	assert.False(t, old.Assigned(), "evicted module loses its kit")
	assert.Equal(t, types.ModuleOK, old.Status, "evicted module keeps its status")

	got, err := b.Backpack(ctx, k.ID)
	require.NoError(t, err)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "01020001", got.ModuleAt(0, 0).ID)
}

func TestSaveBackpackRejectsInvalidKits(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	placeholder := &types.Module{ID: "01XX0001", Status: types.ModuleMissing, Placeholder: true}
	wide := &types.Module{ID: "01010001", Status: types.ModuleOK, Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}}
	under := &types.Module{ID: "02010002", Status: types.ModuleOK, Placement: types.Placement{Col: 1, Row: 0}}
	beside := &types.Module{ID: "02010003", Status: types.ModuleOK, Placement: types.Placement{Col: 2, Row: 0}}

	tests := []struct {
		name    string
		kit     *types.Kit
		wantErr error
	}{
		{"no id", &types.Kit{Name: "x", Status: types.StatusOperational}, types.ErrInvalidID},
		{"no name", &types.Kit{ID: "k", Status: types.StatusOperational}, types.ErrInvalidName},
		{"bad status", &types.Kit{ID: "k", Name: "x", Status: "BROKEN"}, types.ErrInvalidState},
		{"placeholder module", &types.Kit{ID: "k", Name: "x", Status: types.StatusOperational, Modules: []*types.Module{placeholder}}, types.ErrInvalidData},
		{"placeholder id without flag", &types.Kit{ID: "k", Name: "x", Status: types.StatusOperational, Modules: []*types.Module{{ID: "02XX0003"}}}, types.ErrInvalidData},
		{"overlapping modules", &types.Kit{ID: "k", Name: "x", Status: types.StatusOperational, Modules: []*types.Module{wide, beside, under}}, types.ErrOverlap},
		{"same origin", &types.Kit{ID: "k", Name: "x", Status: types.StatusOperational, Modules: []*types.Module{beside, {ID: "03010004", Placement: types.Placement{Col: 2, Row: 0}}}}, types.ErrOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, b.SaveBackpack(ctx, tt.kit), tt.wantErr)
		})
	}
}

func TestUpdateBackpackStatus(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	stockedKit(t, b)

	require.NoError(t, b.UpdateBackpackStatus(ctx, "kit-1", types.StatusInPreparation))
	k, err := b.Backpack(ctx, "kit-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInPreparation, k.Status)
	assert.True(t, testNow.Equal(k.LastSync), "status updates do not touch the sync time")

	assert.ErrorIs(t, b.UpdateBackpackStatus(ctx, "nope", types.StatusOperational), types.ErrNotFound)
	assert.ErrorIs(t, b.UpdateBackpackStatus(ctx, "kit-1", "SLEEPING"), types.ErrInvalidState)
}

func TestDeleteBackpack(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	stockedKit(t, b)

	require.NoError(t, b.DeleteBackpack(ctx, "kit-1"))
	_, err := b.Backpack(ctx, "kit-1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	m, err := b.ModuleByID(ctx, "01010001")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.KitID)

	assert.ErrorIs(t, b.DeleteBackpack(ctx, "kit-1"), types.ErrNotFound)
}

func TestRegisterModule(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	_, err := b.AddContentDefinition(ctx, types.ContentDefinition{Code: "7", Name: "Burn dressing"})
	require.NoError(t, err)

	m, err := b.RegisterModule(ctx, " 0411 0007 ", "", "green")
	require.NoError(t, err)
	assert.Equal(t, "04110007", m.ID)
	assert.Equal(t, "Burn dressing", m.Name)
	assert.Equal(t, types.ModuleWaiting, m.Status)
	assert.True(t, m.Available())

	m, err = b.RegisterModule(ctx, "04110099", "", "green")
	require.NoError(t, err)
	assert.Equal(t, types.UnknownContentName, m.Name)

	_, err = b.RegisterModule(ctx, "04XX0007", "x", "green")
	assert.ErrorIs(t, err, types.ErrFormat)
	_, err = b.RegisterModule(ctx, "0411000", "x", "green")
	assert.ErrorIs(t, err, types.ErrFormat)

	got, err := b.ModuleByID(ctx, "99999999")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegisterModuleRejectsAssigned(t *testing.T) {
	b, _ := newTestBackend(t)
	stockedKit(t, b)

	_, err := b.RegisterModule(context.Background(), "01010001", "again", "red")
	assert.ErrorIs(t, err, types.ErrAlreadyAssigned)
}

func TestModulesOrderedByLastUpdate(t *testing.T) {
	clock := testNow
	b, _ := newTestBackend(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	registerAll(t, b, "01010001")
	clock = clock.Add(time.Minute)
	registerAll(t, b, "01010002")

	mods, err := b.Modules(ctx)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "01010002", mods[0].ID)
}

func TestKitsSurviveReattach(t *testing.T) {
	b, dir := newTestBackend(t)
	stockedKit(t, b)

	data, err := os.ReadFile(filepath.Join(dir, kitsJSONL))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"kit_id":"kit-1"`)

	nb := reattach(t, b, dir)
	k, err := nb.Backpack(context.Background(), "kit-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusOperational, k.Status)
	assert.Len(t, k.Modules, 2)
	assert.Equal(t, 2, k.Modules[0].Width)
}
