package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestModuleContentsDriveExpiry(t *testing.T) {
	b, dir := newTestBackend(t)
	ctx := context.Background()
	registerAll(t, b, "01010001")

	_, err := b.AddModuleContent(ctx, types.ModuleContent{
		ModuleID: "01010001", ArticleName: "Elastic roll", BatchNumber: "B-1",
		Expiry: date(2027, 3, 1), Quantity: 2,
	})
	require.NoError(t, err)
	_, err = b.AddModuleContent(ctx, types.ModuleContent{
		ModuleID: "01010001", ArticleName: "Absorbent pad", Expiry: date(2026, 12, 24),
	})
	require.NoError(t, err)
	_, err = b.AddModuleContent(ctx, types.ModuleContent{ModuleID: "01010001", ArticleName: "Gloves"})
	require.NoError(t, err, "contents without an expiry are allowed")

	m, err := b.ModuleByID(ctx, "01010001")
	require.NoError(t, err)
	require.NotNil(t, m.Expiry)
	assert.True(t, date(2026, 12, 24).Equal(*m.Expiry), "module expiry is the earliest content expiry")

	nb := reattach(t, b, dir)
	contents, err := nb.ModuleContents(ctx, "01010001")
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, "Gloves", contents[0].ArticleName, "undated contents sort first")
	assert.Equal(t, "Absorbent pad", contents[1].ArticleName)
	assert.Equal(t, 1, contents[1].Quantity, "quantity defaults to one")
	assert.Equal(t, "B-1", contents[2].BatchNumber)

	require.NoError(t, nb.ClearModuleContents(ctx, "01010001"))
	m, err = nb.ModuleByID(ctx, "01010001")
	require.NoError(t, err)
	assert.Nil(t, m.Expiry)
	contents, err = nb.ModuleContents(ctx, "01010001")
	require.NoError(t, err)
	assert.Empty(t, contents)
}

func TestAddModuleContentValidation(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.AddModuleContent(ctx, types.ModuleContent{ModuleID: "01010001", ArticleName: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	registerAll(t, b, "01010001")
	_, err = b.AddModuleContent(ctx, types.ModuleContent{ModuleID: "01010001"})
	assert.ErrorIs(t, err, types.ErrInvalidName)
	_, err = b.AddModuleContent(ctx, types.ModuleContent{ModuleID: "01010001", ArticleName: "x", Quantity: -1})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}
