package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	vehicleDomain "github.com/Lokato-Mobility/service-booking/internal/domain/vehicle"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OwnerID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	OwnerEmail string         `gorm:"type:varchar(255);not null"`
	Title      string         `gorm:"type:varchar(200);not null"`
	Plate      string         `gorm:"type:varchar(20);not null"`
	Policy     datatypes.JSON `gorm:"type:jsonb;not null"`
	Status     string         `gorm:"type:varchar(20);not null;default:'active'"`
	Version    int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (VehicleModel) TableName() string { return "vehicles" }

// GormVehicleRepository implements VehicleRepository using GORM.
type GormVehicleRepository struct {
	db *gorm.DB
}

func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicleDomain.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id.String())
		}
		return nil, err
	}
	return toVehicleDomain(&model)
}

func (r *GormVehicleRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*vehicleDomain.Vehicle, error) {
	var models []VehicleModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	vehicles := make([]*vehicleDomain.Vehicle, len(models))
	for i := range models {
		v, err := toVehicleDomain(&models[i])
		if err != nil {
			return nil, err
		}
		vehicles[i] = v
	}
	return vehicles, nil
}

func (r *GormVehicleRepository) Save(ctx context.Context, v *vehicleDomain.Vehicle) error {
	model, err := toVehicleModel(v)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *GormVehicleRepository) Update(ctx context.Context, v *vehicleDomain.Vehicle) error {
	model, err := toVehicleModel(v)
	if err != nil {
		return err
	}
	previousVersion := v.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&VehicleModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"owner_email": model.OwnerEmail,
			"title":       model.Title,
			"plate":       model.Plate,
			"policy":      model.Policy,
			"status":      model.Status,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("vehicle was modified by another request")
	}
	return nil
}

func toVehicleModel(v *vehicleDomain.Vehicle) (*VehicleModel, error) {
	policyJSON, err := json.Marshal(v.Policy().Terms())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rental policy: %w", err)
	}
	return &VehicleModel{
		ID:         v.ID(),
		OwnerID:    v.OwnerID(),
		OwnerEmail: v.OwnerEmail(),
		Title:      v.Title(),
		Plate:      v.Plate(),
		Policy:     datatypes.JSON(policyJSON),
		Status:     string(v.Status()),
		Version:    v.Version(),
		CreatedAt:  v.CreatedAt(),
		UpdatedAt:  v.UpdatedAt(),
	}, nil
}

func toVehicleDomain(m *VehicleModel) (*vehicleDomain.Vehicle, error) {
	var terms pricing.PolicyTerms
	if err := json.Unmarshal(m.Policy, &terms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rental policy: %w", err)
	}
	policy, err := pricing.NewVehicleRentalPolicy(terms)
	if err != nil {
		return nil, fmt.Errorf("stored rental policy of vehicle %s is invalid: %w", m.ID, err)
	}
	return vehicleDomain.Reconstruct(
		m.ID, m.OwnerID,
		m.OwnerEmail, m.Title, m.Plate,
		policy,
		vehicleDomain.VehicleStatus(m.Status),
		m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	), nil
}
