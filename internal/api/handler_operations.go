package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/mw"
)

// operationAction is one step of the operation state machine performed by an operator.
type operationAction func(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error)

func (h *Handler) startOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	return h.store.StartOperation(ctx, id, operatorID)
}

func (h *Handler) pauseOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	return h.store.PauseOperation(ctx, id, operatorID)
}

func (h *Handler) resumeOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	return h.store.ResumeOperation(ctx, id, operatorID)
}

// completeOperation finishes an operation and announces the next step of its work order.
func (h *Handler) completeOperation(ctx context.Context, id, operatorID int64) (*model.WorkOrderOperation, error) {
	op, next, err := h.store.CompleteOperation(ctx, id, operatorID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		h.notify(next.ID)
	}
	return op, nil
}

func (h *Handler) runOperation(c *gin.Context, action operationAction, operatorID int64) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	op, err := action(c.Request.Context(), id, operatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Debug("operation changed",
		zap.Int64("operation_id", op.ID),
		zap.String("status", string(op.Status)),
		zap.Int64("operator_id", operatorID))
	c.JSON(http.StatusOK, op)
}

type operatorActionRequest struct {
	OperatorID int64 `json:"operator_id" binding:"required"`
}

// adminOperation runs an action for the operator named in the request body.
func (h *Handler) adminOperation(action operationAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req operatorActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		h.runOperation(c, action, req.OperatorID)
	}
}

// panelOperation runs an action for the operator logged in at the panel.
func (h *Handler) panelOperation(action operationAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID, ok := mw.OperatorID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization is required"})
			return
		}
		h.runOperation(c, action, operatorID)
	}
}

func (h *Handler) GetOperation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	op, err := h.store.GetOperation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

// CancelOperation handles POST /operations/:id/cancel. Later steps of the
// same work order are cancelled with it.
func (h *Handler) CancelOperation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	op, err := h.store.CancelOperation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}
