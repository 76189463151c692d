package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/auth"
	"github.com/Lokato-Mobility/service-booking/internal/platform/middleware"
	"github.com/Lokato-Mobility/service-booking/internal/platform/response"
)

// VehicleHandler handles HTTP requests for vehicles and their rental policies.
type VehicleHandler struct {
	service *application.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(service *application.VehicleService) *VehicleHandler {
	return &VehicleHandler{service: service}
}

// RegisterRoutes registers all vehicle routes.
func (h *VehicleHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	ownerRole := middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin)

	r.GET("/api/v1/vehicles/:id", h.GetVehicle)

	vehicles := r.Group("/api/v1/vehicles")
	vehicles.Use(authMW, ownerRole)
	{
		vehicles.POST("", h.RegisterVehicle)
		vehicles.GET("", h.GetMyVehicles)
		vehicles.PUT("/:id/rental-policy", h.UpdateRentalPolicy)
		vehicles.POST("/:id/activate", h.Activate)
		vehicles.POST("/:id/deactivate", h.Deactivate)
	}
}

// RegisterVehicle handles POST /api/v1/vehicles.
func (h *VehicleHandler) RegisterVehicle(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RegisterVehicle(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetMyVehicles handles GET /api/v1/vehicles.
func (h *VehicleHandler) GetMyVehicles(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.ListOwnerVehicles(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetVehicle handles GET /api/v1/vehicles/:id.
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return
	}

	result, err := h.service.GetVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateRentalPolicy handles PUT /api/v1/vehicles/:id/rental-policy.
func (h *VehicleHandler) UpdateRentalPolicy(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var terms pricing.PolicyTerms
	if err := c.ShouldBindJSON(&terms); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateRentalPolicy(c.Request.Context(), actor, vehicleID, terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Activate handles POST /api/v1/vehicles/:id/activate.
func (h *VehicleHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate handles POST /api/v1/vehicles/:id/deactivate.
func (h *VehicleHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *VehicleHandler) setActive(c *gin.Context, active bool) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.SetVehicleActive(c.Request.Context(), actor, vehicleID, active)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
