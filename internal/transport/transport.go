package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a dependency probed by /health.
type HealthChecker func(ctx context.Context) error

type Handlers struct {
	Event    *EventHandler
	Booking  *BookingHandler
	Waitlist *WaitlistHandler
	Admin    *AdminHandler
}

func InitRoutes(h *Handlers, requestTimeout time.Duration, checks map[string]HealthChecker) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(requestTimeout))

	// API routes
	api := router.Group("/api/v1")
	{
		// Event routes
		events := api.Group("/events")
		{
			events.POST("", h.Event.CreateEvent)
			events.GET("", h.Event.GetAllEvents)
			events.GET("/:id", h.Event.GetEvent)
			events.PATCH("/:id", h.Event.UpdateEvent)
			events.DELETE("/:id", h.Event.DeleteEvent)
			events.POST("/:id/restore", h.Event.RestoreEvent)
			events.GET("/:id/overview", h.Event.GetEventOverview)

			events.POST("/:id/tickets", middleware.RequireOwner(), h.Booking.RequestTicket)
			events.GET("/:id/bookings", h.Booking.GetEventBookings)
			events.GET("/:id/waitlist", h.Waitlist.GetEventWaitlist)
			events.POST("/:id/promote", h.Waitlist.PromoteEvent)
		}

		// Booking routes
		bookings := api.Group("/bookings")
		{
			bookings.GET("/:id", h.Booking.GetBooking)
			bookings.DELETE("/:id", h.Booking.CancelBooking)
		}

		api.GET("/me/bookings", middleware.RequireOwner(), h.Booking.GetMyBookings)

		// Waitlist routes
		waitlist := api.Group("/waitlist")
		{
			waitlist.GET("/:id", h.Waitlist.GetEntry)
			waitlist.DELETE("/:id", h.Waitlist.RemoveEntry)
		}

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.GET("/queue/stats", h.Admin.GetQueueStats)
			admin.GET("/queue/failed", h.Admin.GetFailedTasks)
			admin.POST("/queue/failed/:id/requeue", h.Admin.RequeueFailedTask)
			admin.DELETE("/queue/failed/:id", h.Admin.DeleteFailedTask)
			admin.GET("/waitlist/sweep", h.Admin.GetSweepStats)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = err.Error()
				continue
			}
			components[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"components": components,
			"timestamp":  time.Now().UTC(),
		})
	})

	return router
}
