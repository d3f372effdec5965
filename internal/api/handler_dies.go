package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/store"
)

type createDieRequest struct {
	DieNumber            string  `json:"die_number" binding:"required"`
	DieTypeID            int64   `json:"die_type_id" binding:"required"`
	Customer             string  `json:"customer"`
	DieDiameterMm        float64 `json:"die_diameter_mm"`
	TotalPackageLengthMm float64 `json:"total_package_length_mm"`
	Notes                string  `json:"notes"`
}

type updateDieRequest struct {
	DieTypeID            *int64   `json:"die_type_id"`
	Customer             *string  `json:"customer"`
	DieDiameterMm        *float64 `json:"die_diameter_mm"`
	TotalPackageLengthMm *float64 `json:"total_package_length_mm"`
	Notes                *string  `json:"notes"`
}

type dieStatusRequest struct {
	Status model.DieStatus `json:"status" binding:"required"`
}

// CreateDie handles POST /dies. New dies start in Draft.
func (h *Handler) CreateDie(c *gin.Context) {
	var req createDieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	die, err := h.store.CreateDie(c.Request.Context(), store.DieInput{
		DieNumber:            req.DieNumber,
		DieTypeID:            req.DieTypeID,
		Customer:             req.Customer,
		DieDiameterMm:        req.DieDiameterMm,
		TotalPackageLengthMm: req.TotalPackageLengthMm,
		Notes:                req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, die)
}

// ListDies handles GET /dies?status=.
func (h *Handler) ListDies(c *gin.Context) {
	status := model.DieStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "invalid status")
		return
	}
	dies, err := h.store.ListDies(c.Request.Context(), store.DieFilter{Status: status})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dies)
}

// GetDie returns the die with its components and files.
func (h *Handler) GetDie(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	die, err := h.store.GetDie(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	for i := range die.Files {
		h.resolver.Decorate(&die.Files[i])
	}
	c.JSON(http.StatusOK, die)
}

func (h *Handler) UpdateDie(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateDieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	die, err := h.store.UpdateDie(c.Request.Context(), id, store.DieUpdate{
		DieTypeID:            req.DieTypeID,
		Customer:             req.Customer,
		DieDiameterMm:        req.DieDiameterMm,
		TotalPackageLengthMm: req.TotalPackageLengthMm,
		Notes:                req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, die)
}

// SetDieStatus handles PATCH /dies/:id/status. Status only moves forward.
func (h *Handler) SetDieStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dieStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	die, err := h.store.SetDieStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, die)
}

// DeleteDie removes a Draft die and its stored files.
func (h *Handler) DeleteDie(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	files, err := h.store.DeleteDie(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	for _, f := range files {
		h.removeObject(c, f.ObjectKey)
	}
	c.Status(http.StatusNoContent)
}

type componentRequest struct {
	ComponentTypeID  int64   `json:"component_type_id"`
	SteelStockItemID int64   `json:"steel_stock_item_id"`
	PackageLengthMm  float64 `json:"package_length_mm"`
}

func (r componentRequest) input() store.ComponentInput {
	return store.ComponentInput{
		ComponentTypeID:  r.ComponentTypeID,
		SteelStockItemID: r.SteelStockItemID,
		PackageLengthMm:  r.PackageLengthMm,
	}
}

func (h *Handler) ListComponents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	comps, err := h.store.ListComponents(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comps)
}

// AddComponent handles POST /dies/:id/components.
func (h *Handler) AddComponent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req componentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	comp, err := h.store.AddComponent(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

func (h *Handler) UpdateComponent(c *gin.Context) {
	dieID, ok := pathID(c, "id")
	if !ok {
		return
	}
	compID, ok := pathID(c, "componentId")
	if !ok {
		return
	}
	var req componentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	comp, err := h.store.UpdateComponent(c.Request.Context(), dieID, compID, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (h *Handler) DeleteComponent(c *gin.Context) {
	dieID, ok := pathID(c, "id")
	if !ok {
		return
	}
	compID, ok := pathID(c, "componentId")
	if !ok {
		return
	}
	if err := h.store.DeleteComponent(c.Request.Context(), dieID, compID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeObject(c *gin.Context, key string) {
	if h.files == nil {
		return
	}
	if err := h.files.Remove(c.Request.Context(), key); err != nil {
		h.log.Warn("remove stored object", zap.String("key", key), zap.Error(err))
	}
}
