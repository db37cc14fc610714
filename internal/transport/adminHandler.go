package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/pkg/queue"

	"github.com/gin-gonic/gin"
)

const defaultFailedLimit = 50

// QueueInspector exposes dispatch queue lengths.
type QueueInspector interface {
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
}

// StatsProvider reports counters of a background worker.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

type AdminHandler struct {
	queue QueueInspector
	dlq   queue.DLQHandler
	sweep StatsProvider
}

func NewAdminHandler(inspector QueueInspector, dlq queue.DLQHandler, sweep StatsProvider) *AdminHandler {
	return &AdminHandler{
		queue: inspector,
		dlq:   dlq,
		sweep: sweep,
	}
}

func (h *AdminHandler) GetQueueStats(c *gin.Context) {
	stats, err := h.queue.GetQueueStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	dlqStats, err := h.dlq.GetDLQStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    stats,
		Meta:    gin.H{"dlq": dlqStats},
	})
}

func (h *AdminHandler) GetFailedTasks(c *gin.Context) {
	limit := defaultFailedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	tasks, err := h.dlq.GetFailedTasks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    tasks,
		Meta:    gin.H{"count": len(tasks), "limit": limit},
	})
}

func (h *AdminHandler) RequeueFailedTask(c *gin.Context) {
	if err := h.dlq.RequeueFailedTask(c.Request.Context(), c.Param("id")); err != nil {
		h.dlqError(c, err)
		return
	}

	respond(c, http.StatusOK, "task requeued", nil)
}

func (h *AdminHandler) DeleteFailedTask(c *gin.Context) {
	if err := h.dlq.DeleteFailedTask(c.Request.Context(), c.Param("id")); err != nil {
		h.dlqError(c, err)
		return
	}

	respond(c, http.StatusOK, "task deleted", nil)
}

func (h *AdminHandler) GetSweepStats(c *gin.Context) {
	respond(c, http.StatusOK, "", h.sweep.GetStats())
}

func (h *AdminHandler) dlqError(c *gin.Context, err error) {
	if errors.Is(err, queue.ErrTaskNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Success: false,
			Kind:    entity.KindNotFound,
			Error:   err.Error(),
		})
		return
	}
	respondError(c, err)
}
