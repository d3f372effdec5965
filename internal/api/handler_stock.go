package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dieworks-backend/internal/store"
)

type stockItemRequest struct {
	Alloy       string  `json:"alloy" binding:"required"`
	DiameterMm  float64 `json:"diameter_mm" binding:"required"`
	Description string  `json:"description"`
}

// CreateStockItem handles POST /stock-items. Stock items cannot be edited.
func (h *Handler) CreateStockItem(c *gin.Context) {
	var req stockItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.store.CreateStockItem(c.Request.Context(), store.StockItemInput{
		Alloy:       req.Alloy,
		DiameterMm:  req.DiameterMm,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) ListStockItems(c *gin.Context) {
	items, err := h.store.ListStockItems(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetStockItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.store.GetStockItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type lotRequest struct {
	SteelStockItemID int64      `json:"steel_stock_item_id" binding:"required"`
	LotNumber        string     `json:"lot_number"`
	CertificateNo    string     `json:"certificate_no"`
	Supplier         string     `json:"supplier"`
	GrossWeightKg    float64    `json:"gross_weight_kg" binding:"required"`
	ReceivedAt       *time.Time `json:"received_at"`
}

// CreateLot handles POST /lots.
func (h *Handler) CreateLot(c *gin.Context) {
	var req lotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	lot, err := h.store.CreateLot(c.Request.Context(), store.LotInput{
		SteelStockItemID: req.SteelStockItemID,
		LotNumber:        req.LotNumber,
		CertificateNo:    req.CertificateNo,
		Supplier:         req.Supplier,
		GrossWeightKg:    req.GrossWeightKg,
		ReceivedAt:       req.ReceivedAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// ListLots handles GET /lots?steel_stock_item_id=&available=.
func (h *Handler) ListLots(c *gin.Context) {
	itemID, ok := queryID(c, "steel_stock_item_id")
	if !ok {
		return
	}
	available, ok := queryBool(c, "available")
	if !ok {
		return
	}
	f := store.LotFilter{SteelStockItemID: itemID}
	if available != nil {
		f.Available = *available
	}
	lots, err := h.store.ListLots(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

func (h *Handler) GetLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lot, err := h.store.GetLot(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) ListLotMovements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moves, err := h.store.ListLotMovements(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, moves)
}
