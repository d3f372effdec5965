package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dieworks-backend/internal/model"
)

func sampleOrder() *model.ProductionOrder {
	bar := &model.SteelStockItem{Alloy: "1.2343", DiameterMm: 250}
	return &model.ProductionOrder{
		OrderNumber: "UE-1100-001",
		WorkOrders: []model.WorkOrder{
			{
				WorkOrderNumber:          "IE-1100-001-01",
				Status:                   model.OrderStatusInProgress,
				TheoreticalConsumptionKg: 161.84,
				ActualConsumptionKg:      150.5,
				DieComponent: &model.DieComponent{
					ComponentType:  &model.ComponentType{Code: "MAN", Name: "Mandrel"},
					SteelStockItem: bar,
				},
				Lot: &model.Lot{LotNumber: "H-4711"},
			},
			{
				WorkOrderNumber:          "IE-1100-001-02",
				Status:                   model.OrderStatusWaiting,
				TheoreticalConsumptionKg: 13.42,
			},
		},
	}
}

func TestProductionOrderWorkbook(t *testing.T) {
	f, err := ProductionOrderWorkbook(sampleOrder())
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	read, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer read.Close()

	rows, err := read.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{
		"IE-1100-001-01", "Mandrel", "1.2343 Ø250", "H-4711", "161.84", "150.5", "-11.34", "InProgress",
	}, rows[1])

	assert.Equal(t, "IE-1100-001-02", rows[2][0])
	assert.Equal(t, "", rows[2][1], "component not loaded")
	assert.Equal(t, "-13.42", rows[2][6])

	assert.Equal(t, "Total UE-1100-001", rows[3][0])
	assert.Equal(t, "175.26", rows[3][4])
	assert.Equal(t, "150.5", rows[3][5])
	assert.Equal(t, "-24.76", rows[3][6])
}

func TestProductionOrderWorkbook_Empty(t *testing.T) {
	f, err := ProductionOrderWorkbook(&model.ProductionOrder{OrderNumber: "UE-7-001"})
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Total UE-7-001", total)

	_, err = ProductionOrderWorkbook(nil)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "UE-1100-001_consumption.xlsx", FileName(&model.ProductionOrder{OrderNumber: "UE-1100-001"}))
}
