package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	"github.com/Lokato-Mobility/service-booking/internal/platform/auth"
	"github.com/Lokato-Mobility/service-booking/internal/platform/middleware"
	"github.com/Lokato-Mobility/service-booking/internal/platform/response"
)

// ReceiptHandler serves the stored pricing of a booking.
type ReceiptHandler struct {
	service *application.RenderingService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(service *application.RenderingService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// RegisterRoutes registers breakdown and receipt routes.
func (h *ReceiptHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.GET("/:id/breakdown", h.GetBreakdown)
		bookings.GET("/:id/receipt.pdf", h.GetReceipt)
	}
}

// GetBreakdown handles GET /api/v1/bookings/:id/breakdown?currency=EUR.
func (h *ReceiptHandler) GetBreakdown(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.GetBreakdown(c.Request.Context(), actor, bookingID, c.Query("currency"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetReceipt handles GET /api/v1/bookings/:id/receipt.pdf.
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	pdf, filename, err := h.service.RenderReceipt(c.Request.Context(), actor, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
