package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dieworks-backend/internal/calc"
	"dieworks-backend/internal/model"
)

// Weights are kept to the gram.
const weightPlaces = 3

func kg(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(weightPlaces)
}

func (s *gormStore) CreateStockItem(ctx context.Context, in StockItemInput) (*model.SteelStockItem, error) {
	alloy := strings.TrimSpace(in.Alloy)
	if alloy == "" {
		return nil, invalid("alloy is required")
	}
	if !(in.DiameterMm > 0) {
		return nil, invalid("diameter must be positive")
	}

	item := model.SteelStockItem{
		Alloy:       alloy,
		DiameterMm:  in.DiameterMm,
		Description: strings.TrimSpace(in.Description),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.SteelStockItem{}).
			Where("alloy = ? AND diameter_mm = ?", alloy, in.DiameterMm).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check stock item: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("stock item %s %gmm already exists: %w", alloy, in.DiameterMm, ErrConflict)
		}
		if err := tx.Create(&item).Error; err != nil {
			return dbErr(err, "create stock item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *gormStore) ListStockItems(ctx context.Context) ([]model.SteelStockItem, error) {
	var items []model.SteelStockItem
	if err := s.db.WithContext(ctx).Order("alloy").Order("diameter_mm").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	return items, nil
}

func (s *gormStore) GetStockItem(ctx context.Context, id int64) (*model.SteelStockItem, error) {
	var item model.SteelStockItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, dbErr(err, "stock item %d", id)
	}
	return &item, nil
}

// CreateLot receives a lot into stock and writes its receipt movement.
func (s *gormStore) CreateLot(ctx context.Context, in LotInput) (*model.Lot, error) {
	gross := kg(in.GrossWeightKg)
	if !gross.IsPositive() {
		return nil, invalid("gross weight must be positive")
	}
	number := strings.TrimSpace(in.LotNumber)
	if number == "" {
		number = calc.GenerateOrderNumber("LOT")
	}
	receivedAt := s.now()
	if in.ReceivedAt != nil {
		receivedAt = *in.ReceivedAt
	}

	lot := model.Lot{
		SteelStockItemID: in.SteelStockItemID,
		LotNumber:        number,
		CertificateNo:    strings.TrimSpace(in.CertificateNo),
		Supplier:         strings.TrimSpace(in.Supplier),
		GrossWeightKg:    gross.InexactFloat64(),
		RemainingKg:      gross.InexactFloat64(),
		ReceivedAt:       receivedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.SteelStockItem
		if err := tx.First(&item, in.SteelStockItemID).Error; err != nil {
			return dbErr(err, "stock item %d", in.SteelStockItemID)
		}

		var n int64
		if err := tx.Model(&model.Lot{}).Where("lot_number = ?", number).Count(&n).Error; err != nil {
			return fmt.Errorf("check lot number: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("lot %q already exists: %w", number, ErrConflict)
		}

		if err := tx.Create(&lot).Error; err != nil {
			return dbErr(err, "create lot %s", number)
		}
		receipt := model.LotMovement{
			LotID:            lot.ID,
			Type:             model.MovementReceipt,
			QuantityKg:       lot.GrossWeightKg,
			RemainingAfterKg: lot.RemainingKg,
			Reference:        lot.LotNumber,
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return fmt.Errorf("record receipt of lot %s: %w", number, err)
		}
		lot.SteelStockItem = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (s *gormStore) ListLots(ctx context.Context, f LotFilter) ([]model.Lot, error) {
	q := s.db.WithContext(ctx).Preload("SteelStockItem")
	if f.SteelStockItemID != 0 {
		q = q.Where("steel_stock_item_id = ?", f.SteelStockItemID)
	}
	if f.Available {
		q = q.Where("remaining_kg > 0")
	}
	var lots []model.Lot
	if err := q.Order("received_at").Order("id").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (s *gormStore) GetLot(ctx context.Context, id int64) (*model.Lot, error) {
	var lot model.Lot
	if err := s.db.WithContext(ctx).Preload("SteelStockItem").First(&lot, id).Error; err != nil {
		return nil, dbErr(err, "lot %d", id)
	}
	return &lot, nil
}

func (s *gormStore) ListLotMovements(ctx context.Context, lotID int64) ([]model.LotMovement, error) {
	if _, err := s.GetLot(ctx, lotID); err != nil {
		return nil, err
	}
	var moves []model.LotMovement
	if err := s.db.WithContext(ctx).Where("lot_id = ?", lotID).Order("id").Find(&moves).Error; err != nil {
		return nil, fmt.Errorf("list movements of lot %d: %w", lotID, err)
	}
	return moves, nil
}
