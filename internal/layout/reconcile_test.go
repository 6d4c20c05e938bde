package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func testTemplate() *types.Template {
	return &types.Template{
		ID:   types.DefaultLayoutID,
		Cols: 4,
		Rows: 4,
		Slots: []types.Slot{
			{Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}, Name: "Bandages", Color: "red"},
			{Placement: types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, Name: "Gauze", Color: "blue"},
			{Placement: types.Placement{Col: 0, Row: 1, Width: 1, Height: 1}, Name: "Tape", Color: "purple"},
		},
	}
}

func testCatalog() []types.ContentDefinition {
	return []types.ContentDefinition{
		{Code: "1", Name: "Bandages"},
		{Code: "12", Name: "Gauze"},
	}
}

func TestColorCode(t *testing.T) {
	tests := []struct {
		color string
		want  string
	}{
		{"red", "01"},
		{"blue", "02"},
		{"yellow", "03"},
		{"green", "04"},
		{"grey", "00"},
		{"", "00"},
		{"purple", "00"},
	}
	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorCode(tt.color))
		})
	}
	assert.Equal(t, "yellow", ColorName("03"))
	assert.Equal(t, "grey", ColorName("99"))
}

func TestCatalogLookups(t *testing.T) {
	cat := testCatalog()
	assert.Equal(t, "0001", CatalogCode(cat, "Bandages"))
	assert.Equal(t, "0012", CatalogCode(cat, "Gauze"))
	assert.Equal(t, "0000", CatalogCode(cat, "Tape"))

	assert.Equal(t, "Gauze", ContentName(cat, "0012"))
	assert.Equal(t, "Gauze", ContentName(cat, "12"))
	assert.Equal(t, types.UnknownContentName, ContentName(cat, "0099"))
}

func TestProjectPassesThroughHealthyKits(t *testing.T) {
	healthy := &types.Module{ID: "01010001", Status: types.ModuleOK, Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1}}
	for _, status := range []types.OperationalStatus{types.StatusOperational, types.StatusInUse} {
		t.Run(string(status), func(t *testing.T) {
			k := &types.Kit{ID: "kit-1", Status: status, Modules: []*types.Module{healthy}}
			got := Project(k, testTemplate(), testCatalog())
			require.Len(t, got, 1)
			assert.Same(t, healthy, got[0])
		})
	}
}

func TestProjectFillsMissingSlots(t *testing.T) {
	bandage := &types.Module{
		ID: "01010001", Name: "Bandages", Color: "red", Status: types.ModuleOpened,
		KitID: "kit-1", Placement: types.Placement{Col: 0, Row: 0, Width: 2, Height: 1},
	}
	k := &types.Kit{ID: "kit-1", Status: types.StatusNeedsAttention, Modules: []*types.Module{bandage}}

	got := Project(k, testTemplate(), testCatalog())
	require.Len(t, got, 3)

	assert.Same(t, bandage, got[0])

	gauze := got[1]
	assert.True(t, gauze.Placeholder)
	assert.Equal(t, "02XX0012", gauze.ID)
	assert.Equal(t, types.ModuleMissing, gauze.Status)
	assert.Equal(t, "kit-1", gauze.KitID)
	assert.Equal(t, "Gauze", gauze.Name)
	assert.Equal(t, types.Placement{Col: 2, Row: 0, Width: 2, Height: 1}, gauze.Placement)
	assert.True(t, types.IsPlaceholder(gauze.ID))

	tape := got[2]
	assert.Equal(t, "00XX0000", tape.ID, "unknown color and content fall back to zeros")

	ref := gauze.Ref()
	assert.True(t, ref.IsEmpty())
	assert.Equal(t, "02", ref.Color())
	assert.Equal(t, "0012", ref.Content())
}

func TestProjectDuringPreparation(t *testing.T) {
	k := &types.Kit{ID: "kit-1", Status: types.StatusInPreparation}
	got := Project(k, testTemplate(), testCatalog())
	require.Len(t, got, 3)
	for _, m := range got {
		assert.True(t, m.Placeholder)
	}
	assert.Empty(t, k.Modules, "projection must not touch the kit")
}

func TestProjectWithoutTemplate(t *testing.T) {
	k := &types.Kit{ID: "kit-1", Status: types.StatusNeedsAttention}
	assert.Empty(t, Project(k, nil, testCatalog()))
	assert.Empty(t, Project(k, &types.Template{Cols: 4, Rows: 4}, testCatalog()))
}

func TestFind(t *testing.T) {
	k := &types.Kit{ID: "kit-1", Status: types.StatusInPreparation}
	eff := Project(k, testTemplate(), testCatalog())
	m := Find(eff, 2, 0)
	require.NotNil(t, m)
	assert.Equal(t, "Gauze", m.Name)
	assert.Nil(t, Find(eff, 3, 3))
}
