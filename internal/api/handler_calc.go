package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dieworks-backend/internal/calc"
)

func positiveQuery(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil || !(v > 0) || math.IsInf(v, 1) {
		badRequest(c, name+" must be a positive number")
		return 0, false
	}
	return v, true
}

// TheoreticalConsumption handles GET /calc/consumption?length_mm=&diameter_mm=.
func (h *Handler) TheoreticalConsumption(c *gin.Context) {
	length, ok := positiveQuery(c, "length_mm")
	if !ok {
		return
	}
	diameter, ok := positiveQuery(c, "diameter_mm")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"length_mm":                  length,
		"diameter_mm":                diameter,
		"theoretical_consumption_kg": calc.CalculateTheoreticalConsumption(length, diameter),
	})
}
