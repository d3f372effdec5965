package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieworks-backend/internal/model"
)

func TestCreateStockItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, err := s.CreateStockItem(ctx, StockItemInput{Alloy: "1.2343", DiameterMm: 250, Description: "ESR"})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)

	_, err = s.CreateStockItem(ctx, StockItemInput{Alloy: "1.2343", DiameterMm: 250})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateStockItem(ctx, StockItemInput{Alloy: "1.2343", DiameterMm: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateStockItem(ctx, StockItemInput{DiameterMm: 100})
	assert.ErrorIs(t, err, ErrValidation)

	other, err := s.CreateStockItem(ctx, StockItemInput{Alloy: "1.2343", DiameterMm: 160})
	require.NoError(t, err)

	items, err := s.ListStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, other.ID, items[0].ID, "ordered by diameter within an alloy")
}

func TestCreateLot(t *testing.T) {
	f := newFixture(t)

	lot, err := f.s.CreateLot(f.ctx, LotInput{
		SteelStockItemID: f.bar250.ID,
		LotNumber:        "H-4471",
		CertificateNo:    "3.1-99812",
		Supplier:         "Böhler",
		GrossWeightKg:    1200.12345,
	})
	require.NoError(t, err)
	assert.Equal(t, 1200.123, lot.GrossWeightKg)
	assert.Equal(t, lot.GrossWeightKg, lot.RemainingKg)
	assert.Equal(t, f.clock, lot.ReceivedAt)

	moves, err := f.s.ListLotMovements(f.ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, model.MovementReceipt, moves[0].Type)
	assert.Equal(t, 1200.123, moves[0].QuantityKg)

	_, err = f.s.CreateLot(f.ctx, LotInput{SteelStockItemID: f.bar250.ID, LotNumber: "H-4471", GrossWeightKg: 10})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.s.CreateLot(f.ctx, LotInput{SteelStockItemID: f.bar250.ID, GrossWeightKg: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.s.CreateLot(f.ctx, LotInput{SteelStockItemID: 999, GrossWeightKg: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLot_GeneratesNumber(t *testing.T) {
	f := newFixture(t)

	lot := f.lot(f.bar160, 300)
	assert.Regexp(t, regexp.MustCompile(`^LOT-\d+-\d{3}$`), lot.LotNumber)
}

func TestListLots_Filters(t *testing.T) {
	f := newFixture(t)

	a := f.lot(f.bar250, 500)
	f.lot(f.bar160, 300)
	empty := f.lot(f.bar250, 1)
	require.NoError(t, f.db.Model(empty).Update("remaining_kg", 0).Error)

	lots, err := f.s.ListLots(f.ctx, LotFilter{SteelStockItemID: f.bar250.ID, Available: true})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, a.ID, lots[0].ID)
	require.NotNil(t, lots[0].SteelStockItem)
	assert.Equal(t, 250.0, lots[0].SteelStockItem.DiameterMm)

	all, err := f.s.ListLots(f.ctx, LotFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
