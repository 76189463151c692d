package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	vehicleDomain "github.com/Lokato-Mobility/service-booking/internal/domain/vehicle"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// RegisterVehicleRequest is the request DTO for listing a vehicle.
type RegisterVehicleRequest struct {
	Title  string              `json:"title" binding:"required"`
	Plate  string              `json:"plate" binding:"required"`
	Policy pricing.PolicyTerms `json:"rental_policy"`
}

// VehicleDTO is the API response representation of a vehicle.
type VehicleDTO struct {
	ID        uuid.UUID           `json:"id"`
	OwnerID   uuid.UUID           `json:"owner_id"`
	Title     string              `json:"title"`
	Plate     string              `json:"plate"`
	Status    string              `json:"status"`
	Policy    pricing.PolicyTerms `json:"rental_policy"`
	Version   int64               `json:"version"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// VehicleService implements use cases for vehicles and their rental policies.
type VehicleService struct {
	repo   vehicleDomain.VehicleRepository
	logger *zap.Logger
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(repo vehicleDomain.VehicleRepository, logger *zap.Logger) *VehicleService {
	return &VehicleService{repo: repo, logger: logger}
}

// RegisterVehicle lists a vehicle for the given owner.
func (s *VehicleService) RegisterVehicle(ctx context.Context, owner Actor, req RegisterVehicleRequest) (*VehicleDTO, error) {
	policy, err := pricing.NewVehicleRentalPolicy(req.Policy)
	if err != nil {
		return nil, err
	}
	v, err := vehicleDomain.NewVehicle(owner.UserID, owner.Email, req.Title, req.Plate, policy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle registered", zap.String("vehicle_id", v.ID().String()), zap.String("owner_id", owner.UserID.String()))
	result := toVehicleDTO(v)
	return &result, nil
}

// GetVehicle returns a vehicle with its rental policy.
func (s *VehicleService) GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDTO, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toVehicleDTO(v)
	return &result, nil
}

// ListOwnerVehicles returns every vehicle of an owner.
func (s *VehicleService) ListOwnerVehicles(ctx context.Context, ownerID uuid.UUID) ([]VehicleDTO, error) {
	vehicles, err := s.repo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

// UpdateRentalPolicy validates and stores new rental terms. Existing
// bookings keep the pricing they were admitted with.
func (s *VehicleService) UpdateRentalPolicy(ctx context.Context, actor Actor, vehicleID uuid.UUID, terms pricing.PolicyTerms) (*VehicleDTO, error) {
	v, err := s.ownedVehicle(ctx, actor, vehicleID)
	if err != nil {
		return nil, err
	}
	policy, err := pricing.NewVehicleRentalPolicy(terms)
	if err != nil {
		return nil, err
	}
	if err := v.UpdatePolicy(policy); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	result := toVehicleDTO(v)
	return &result, nil
}

// SetVehicleActive opens or closes a vehicle for new bookings.
func (s *VehicleService) SetVehicleActive(ctx context.Context, actor Actor, vehicleID uuid.UUID, active bool) (*VehicleDTO, error) {
	v, err := s.ownedVehicle(ctx, actor, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.IsActive() != active {
		if active {
			v.Activate()
		} else {
			v.Deactivate()
		}
		if err := s.repo.Update(ctx, v); err != nil {
			return nil, err
		}
	}
	result := toVehicleDTO(v)
	return &result, nil
}

func (s *VehicleService) ownedVehicle(ctx context.Context, actor Actor, vehicleID uuid.UUID) (*vehicleDomain.Vehicle, error) {
	v, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !v.IsOwnedBy(actor.UserID) {
		return nil, domain.NewForbiddenError("vehicle does not belong to this user")
	}
	return v, nil
}

func toVehicleDTO(v *vehicleDomain.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:        v.ID(),
		OwnerID:   v.OwnerID(),
		Title:     v.Title(),
		Plate:     v.Plate(),
		Status:    string(v.Status()),
		Policy:    v.Policy().Terms(),
		Version:   v.Version(),
		CreatedAt: v.CreatedAt(),
		UpdatedAt: v.UpdatedAt(),
	}
}
