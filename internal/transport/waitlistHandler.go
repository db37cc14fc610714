package transport

import (
	"net/http"

	"github.com/ds124wfegd/WB_L3/6/internal/service"

	"github.com/gin-gonic/gin"
)

type WaitlistHandler struct {
	waitlistService service.WaitlistService
}

func NewWaitlistHandler(waitlistService service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlistService: waitlistService}
}

// GetEventWaitlist lists the waitlist in promotion order
func (h *WaitlistHandler) GetEventWaitlist(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.waitlistService.GetWaitlist(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    entries,
		Meta:    gin.H{"count": len(entries)},
	})
}

func (h *WaitlistHandler) GetEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.waitlistService.GetEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", entry)
}

func (h *WaitlistHandler) RemoveEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.waitlistService.RemoveEntry(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "waitlist entry removed", nil)
}

func (h *WaitlistHandler) PromoteEvent(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		return
	}

	promoted, err := h.waitlistService.PromoteEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "promotion finished", gin.H{"promoted": promoted})
}
