package transport

import (
	"net/http"

	"github.com/ds124wfegd/WB_L3/6/internal/service"
	"github.com/ds124wfegd/WB_L3/6/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// RequestTicket accepts a ticket request for asynchronous processing. The
// outcome (booking or waitlist spot) is visible through the read endpoints.
func (h *BookingHandler) RequestTicket(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		return
	}

	job, err := h.bookingService.SubmitTicketRequest(c.Request.Context(), &service.TicketRequest{
		EventID:    eventID,
		OwnerEmail: middleware.Owner(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusAccepted, "ticket request accepted", job)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", booking)
}

func (h *BookingHandler) GetEventBookings(c *gin.Context) {
	eventID, ok := parseID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.bookingService.GetEventBookings(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    bookings,
		Meta:    gin.H{"count": len(bookings)},
	})
}

func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	bookings, err := h.bookingService.GetOwnerBookings(c.Request.Context(), middleware.Owner(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", bookings)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "booking cancelled", nil)
}
