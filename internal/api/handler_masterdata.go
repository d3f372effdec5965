package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dieworks-backend/internal/store"
)

type createMasterDataRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

func (r createMasterDataRequest) input() store.MasterDataInput {
	return store.MasterDataInput{Code: r.Code, Name: r.Name, IsActive: r.IsActive}
}

type updateMasterDataRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (r updateMasterDataRequest) input() store.MasterDataInput {
	return store.MasterDataInput{Code: r.Code, Name: r.Name, IsActive: r.IsActive}
}

func listFilter(c *gin.Context) (store.ListFilter, bool) {
	active, ok := queryBool(c, "active")
	return store.ListFilter{Active: active}, ok
}

// CreateDieType handles POST /die-types.
func (h *Handler) CreateDieType(c *gin.Context) {
	var req createMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dt, err := h.store.CreateDieType(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dt)
}

// ListDieTypes handles GET /die-types?active=.
func (h *Handler) ListDieTypes(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	types, err := h.store.ListDieTypes(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *Handler) GetDieType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dt, err := h.store.GetDieType(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dt)
}

func (h *Handler) UpdateDieType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dt, err := h.store.UpdateDieType(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dt)
}

// CreateComponentType handles POST /component-types.
func (h *Handler) CreateComponentType(c *gin.Context) {
	var req createMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ct, err := h.store.CreateComponentType(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

func (h *Handler) ListComponentTypes(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	types, err := h.store.ListComponentTypes(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// GetComponentType returns the type with its route steps.
func (h *Handler) GetComponentType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.store.GetComponentType(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) UpdateComponentType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ct, err := h.store.UpdateComponentType(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) ListComponentTypeSteps(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	steps, err := h.store.ListComponentTypeSteps(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, steps)
}

type stepRequest struct {
	SequenceNumber   int    `json:"sequence_number"`
	Name             string `json:"name"`
	WorkCenterID     int64  `json:"work_center_id"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

type replaceStepsRequest struct {
	Steps []stepRequest `json:"steps"`
}

// ReplaceComponentTypeSteps handles PUT /component-types/:id/steps. The body
// replaces the whole route.
func (h *Handler) ReplaceComponentTypeSteps(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req replaceStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := make([]store.StepInput, len(req.Steps))
	for i, s := range req.Steps {
		in[i] = store.StepInput{
			SequenceNumber:   s.SequenceNumber,
			Name:             s.Name,
			WorkCenterID:     s.WorkCenterID,
			EstimatedMinutes: s.EstimatedMinutes,
		}
	}
	steps, err := h.store.ReplaceComponentTypeSteps(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, steps)
}

// CreateWorkCenter handles POST /work-centers.
func (h *Handler) CreateWorkCenter(c *gin.Context) {
	var req createMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	wc, err := h.store.CreateWorkCenter(c.Request.Context(), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wc)
}

func (h *Handler) ListWorkCenters(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	centers, err := h.store.ListWorkCenters(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, centers)
}

func (h *Handler) GetWorkCenter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	wc, err := h.store.GetWorkCenter(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wc)
}

func (h *Handler) UpdateWorkCenter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateMasterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	wc, err := h.store.UpdateWorkCenter(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wc)
}

// DeleteWorkCenter removes a work center no route or operation refers to.
func (h *Handler) DeleteWorkCenter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteWorkCenter(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
