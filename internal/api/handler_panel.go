package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/internal/mw"
	"dieworks-backend/internal/store"
)

type panelLoginRequest struct {
	RFIDCode string `json:"rfid_code" binding:"required"`
}

// PanelLogin exchanges a scanned badge for a panel token.
func (h *Handler) PanelLogin(c *gin.Context) {
	var req panelLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	o, err := h.store.GetOperatorByRFID(c.Request.Context(), req.RFIDCode)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown badge"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !o.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "operator is inactive"})
		return
	}

	now := h.now()
	token, err := mw.IssuePanelToken(h.auth.JWTSecret, o.ID, o.Name, h.auth.TokenTTL, now)
	if err != nil {
		h.log.Error("issue panel token", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "panel login is not configured"})
		return
	}
	h.log.Info("operator logged in", zap.Int64("operator_id", o.ID))
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": now.Add(h.auth.TokenTTL),
		"operator":   o,
	})
}

// PanelMe returns the logged-in operator.
func (h *Handler) PanelMe(c *gin.Context) {
	operatorID, _ := mw.OperatorID(c)
	o, err := h.store.GetOperator(c.Request.Context(), operatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PanelQueue lists the open operations at the operator's work centers.
func (h *Handler) PanelQueue(c *gin.Context) {
	operatorID, _ := mw.OperatorID(c)
	queue, err := h.store.OperatorQueue(c.Request.Context(), operatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, queue)
}
