package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	"github.com/Lokato-Mobility/service-booking/internal/platform/response"
)

// PricingHandler serves quotes and availability. Both are public.
type PricingHandler struct {
	service *application.BookingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(service *application.BookingService) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes registers quote and availability routes.
func (h *PricingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/v1/quotes", h.Quote)
	r.GET("/api/v1/vehicles/:id/availability", h.Availability)
}

// Quote handles POST /api/v1/quotes.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type availabilityQuery struct {
	Start   time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End     time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Exclude string    `form:"exclude_booking_id"`
}

// Availability handles GET /api/v1/vehicles/:id/availability?start=&end=.
func (h *PricingHandler) Availability(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return
	}

	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "start and end must be RFC3339 timestamps")
		return
	}

	var exclude *uuid.UUID
	if q.Exclude != "" {
		id, err := uuid.Parse(q.Exclude)
		if err != nil {
			response.BadRequest(c, "invalid exclude_booking_id")
			return
		}
		exclude = &id
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), vehicleID, q.Start, q.End, exclude)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
