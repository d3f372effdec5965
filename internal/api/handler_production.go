package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/parse"
	"dieworks-backend/internal/report"
	"dieworks-backend/internal/store"
)

type createProductionOrderRequest struct {
	DieID        int64      `json:"die_id" binding:"required"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	Notes        string     `json:"notes"`
}

// CreateProductionOrder handles POST /production-orders. It fans the die out
// into work orders and operations and announces each first step.
func (h *Handler) CreateProductionOrder(c *gin.Context) {
	var req createProductionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	po, err := h.store.CreateProductionOrder(c.Request.Context(), store.ProductionOrderInput{
		DieID:        req.DieID,
		PlannedStart: req.PlannedStart,
		PlannedEnd:   req.PlannedEnd,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info("production order created",
		zap.String("order_number", po.OrderNumber),
		zap.Int("work_orders", len(po.WorkOrders)))
	for _, wo := range po.WorkOrders {
		if len(wo.Operations) > 0 {
			h.notify(wo.Operations[0].ID)
		}
	}
	c.JSON(http.StatusCreated, po)
}

// ListProductionOrders handles GET /production-orders?die_id=&status=.
func (h *Handler) ListProductionOrders(c *gin.Context) {
	dieID, ok := queryID(c, "die_id")
	if !ok {
		return
	}
	orders, err := h.store.ListProductionOrders(c.Request.Context(), store.OrderFilter{
		DieID:  dieID,
		Status: model.OrderStatus(c.Query("status")),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetProductionOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	po, err := h.store.GetProductionOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *Handler) CancelProductionOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	po, err := h.store.CancelProductionOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// ProductionOrderReport streams the consumption workbook of an order.
func (h *Handler) ProductionOrderReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	po, err := h.store.GetProductionOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	f, err := report.ProductionOrderWorkbook(po)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", report.ContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+report.FileName(po)+"\"")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("write report", zap.Int64("production_order_id", id), zap.Error(err))
	}
}

func (h *Handler) GetWorkOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	wo, err := h.store.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

type assignLotRequest struct {
	LotID int64 `json:"lot_id" binding:"required"`
}

// AssignLot handles PUT /work-orders/:id/lot.
func (h *Handler) AssignLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	wo, err := h.store.AssignLot(c.Request.Context(), id, req.LotID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

type consumptionRequest struct {
	QuantityKg float64 `json:"quantity_kg" binding:"required"`
}

// RecordConsumption handles POST /work-orders/:id/consumption. Quantities
// add up; the lot is drawn down by the same amount.
func (h *Handler) RecordConsumption(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req consumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	wo, err := h.store.RecordConsumption(c.Request.Context(), id, req.QuantityKg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

// LookupOrderNumber resolves a scanned UE- or IE- number.
func (h *Handler) LookupOrderNumber(c *gin.Context) {
	parsed, err := parse.ParseOrderNumber(c.Query("number"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	switch parsed.Kind {
	case parse.KindWorkOrder:
		wo, err := h.store.FindWorkOrderByNumber(ctx, parsed.String())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": parsed.Kind, "work_order": wo})
	default:
		po, err := h.store.FindProductionOrderByNumber(ctx, parsed.String())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": parsed.Kind, "production_order": po})
	}
}
