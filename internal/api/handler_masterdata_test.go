package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/store"
)

func TestMasterDataCache(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/die-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.DieType](t, w), 1)

	// Written behind the API's back: the cached list does not see it.
	_, err := s.st.CreateDieType(s.ctx, store.MasterDataInput{Code: "HOL", Name: "Hollow"})
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/api/die-types", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Len(t, decode[[]model.DieType](t, w), 1)

	w = s.do(http.MethodPost, "/api/die-types", gin.H{"code": "SOL", "name": "Solid"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/die-types", nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Len(t, decode[[]model.DieType](t, w), 3)
}

func TestMasterDataErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/die-types", gin.H{"code": "EXT", "name": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/work-centers", gin.H{"code": "MILL"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")

	w = s.do(http.MethodGet, "/api/component-types?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/component-types/"+itoa(s.plate.ID)+"/steps", gin.H{"steps": []gin.H{
		{"sequence_number": 10, "name": "Saw", "work_center_id": 999},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown work center")

	w = s.do(http.MethodDelete, "/api/work-centers/"+itoa(s.saw.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code, "used by routes")
}

func TestComponentTypeSteps(t *testing.T) {
	s := newTestServer(t, nil)
	path := "/api/component-types/" + itoa(s.plate.ID) + "/steps"

	w := s.do(http.MethodPut, path, gin.H{"steps": []gin.H{
		{"sequence_number": 20, "name": "Mill", "work_center_id": s.lathe.ID, "estimated_minutes": 40},
		{"sequence_number": 10, "name": "Saw", "work_center_id": s.saw.ID, "estimated_minutes": 10},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	steps := decode[[]model.ComponentTypeStep](t, w)
	require.Len(t, steps, 2)
	assert.Equal(t, "Saw", steps[0].Name)
	assert.Equal(t, 40, steps[1].EstimatedMinutes)

	inactive := false
	w = s.do(http.MethodPut, "/api/component-types/"+itoa(s.plate.ID), gin.H{"is_active": inactive})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/component-types?active=true", nil)
	active := decode[[]model.ComponentType](t, w)
	require.Len(t, active, 1)
	assert.Equal(t, "MAN", active[0].Code)
}
