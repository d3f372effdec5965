package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dieworks-backend/internal/store"
)

type createOperatorRequest struct {
	Name     string `json:"name" binding:"required"`
	RFIDCode string `json:"rfid_code" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

type updateOperatorRequest struct {
	Name     string `json:"name"`
	RFIDCode string `json:"rfid_code"`
	IsActive *bool  `json:"is_active"`
}

type workCentersRequest struct {
	WorkCenterIDs []int64 `json:"work_center_ids"`
}

func (h *Handler) CreateOperator(c *gin.Context) {
	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := h.store.CreateOperator(c.Request.Context(), store.OperatorInput{
		Name:     req.Name,
		RFIDCode: req.RFIDCode,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOperators(c *gin.Context) {
	operators, err := h.store.ListOperators(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, operators)
}

func (h *Handler) GetOperator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.store.GetOperator(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateOperator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := h.store.UpdateOperator(c.Request.Context(), id, store.OperatorInput{
		Name:     req.Name,
		RFIDCode: req.RFIDCode,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// DeleteOperator removes an operator who never worked an operation.
func (h *Handler) DeleteOperator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteOperator(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOperatorWorkCenters replaces the work centers an operator may run.
func (h *Handler) SetOperatorWorkCenters(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req workCentersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := h.store.SetOperatorWorkCenters(c.Request.Context(), id, req.WorkCenterIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
