// Package report renders production order consumption sheets.
package report

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"dieworks-backend/internal/model"
)

const sheet = "Consumption"

var headers = []string{
	"Work order",
	"Component type",
	"Stock item",
	"Lot",
	"Theoretical kg",
	"Actual kg",
	"Variance kg",
	"Status",
}

var colWidths = []float64{20, 18, 22, 18, 14, 12, 12, 12}

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName is the download name for an order's workbook.
func FileName(order *model.ProductionOrder) string {
	return fmt.Sprintf("%s_consumption.xlsx", order.OrderNumber)
}

// ProductionOrderWorkbook builds one row per work order plus a totals row.
// The order must be loaded with its work orders, their components and lots.
func ProductionOrderWorkbook(order *model.ProductionOrder) (*excelize.File, error) {
	if order == nil {
		return nil, errors.New("report: nil production order")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	var theoretical, actual decimal.Decimal
	for i, wo := range order.WorkOrders {
		row := i + 2
		th := decimal.NewFromFloat(wo.TheoreticalConsumptionKg)
		ac := decimal.NewFromFloat(wo.ActualConsumptionKg)
		theoretical = theoretical.Add(th)
		actual = actual.Add(ac)

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), wo.WorkOrderNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), componentType(wo))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), stockItem(wo))
		if wo.Lot != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), wo.Lot.LotNumber)
		}
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), th.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), ac.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), ac.Sub(th).Round(3).InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), string(wo.Status))
	}

	totalRow := len(order.WorkOrders) + 2
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total "+order.OrderNumber)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), theoretical.Round(3).InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), actual.Round(3).InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), actual.Sub(theoretical).Round(3).InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("H%d", totalRow), totalStyle)

	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

func componentType(wo model.WorkOrder) string {
	if wo.DieComponent == nil || wo.DieComponent.ComponentType == nil {
		return ""
	}
	return wo.DieComponent.ComponentType.Name
}

func stockItem(wo model.WorkOrder) string {
	if wo.DieComponent == nil || wo.DieComponent.SteelStockItem == nil {
		return ""
	}
	item := wo.DieComponent.SteelStockItem
	return fmt.Sprintf("%s Ø%s", item.Alloy, decimal.NewFromFloat(item.DiameterMm).String())
}
