package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teesheet/internal/database"
)

func TestLookupAndAutoApplied(t *testing.T) {
	db, err := database.OpenMemory("catalog_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Product{}))
	cat := New(db)
	ctx := context.Background()

	require.NoError(t, cat.Upsert(ctx, &Product{Code: "gf18", Description: "Green fee 18 holes", Category: CategoryGreenFee, Amount: 150000, AutoApply: true, Active: true}))
	require.NoError(t, cat.Upsert(ctx, &Product{Code: "CART", Description: "Cart fee", Category: CategoryCart, Amount: 70000, Active: true}))
	require.NoError(t, cat.Upsert(ctx, &Product{Code: "GF18", Description: "Green fee 18 holes (weekday)", Category: CategoryGreenFee, Amount: 120000, AutoApply: true, Active: true}))

	p, err := cat.Lookup(ctx, " gf18 ")
	require.NoError(t, err)
	assert.Equal(t, int64(120000), p.Amount)

	auto, err := cat.AutoApplied(ctx)
	require.NoError(t, err)
	require.Len(t, auto, 1)
	assert.Equal(t, "GF18", auto[0].Code)

	all, err := cat.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = cat.Lookup(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
