package vehicle

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// VehicleStatus represents whether a vehicle can currently be booked.
type VehicleStatus string

const (
	VehicleStatusActive   VehicleStatus = "active"
	VehicleStatusInactive VehicleStatus = "inactive"
)

// Vehicle is the aggregate root for a rentable vehicle and its rental policy.
type Vehicle struct {
	id         uuid.UUID
	ownerID    uuid.UUID
	ownerEmail string
	title      string
	plate      string
	policy     pricing.VehicleRentalPolicy
	status     VehicleStatus
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewVehicle registers an active vehicle with a validated policy.
func NewVehicle(ownerID uuid.UUID, ownerEmail, title, plate string, policy pricing.VehicleRentalPolicy) (*Vehicle, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("vehicle title is required")
	}
	if !policy.IsValid() {
		return nil, domain.NewValidationErrorCode(pricing.CodeInvalidPolicy, "a valid rental policy is required")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:         uuid.New(),
		ownerID:    ownerID,
		ownerEmail: ownerEmail,
		title:      strings.TrimSpace(title),
		plate:      strings.ToUpper(strings.TrimSpace(plate)),
		policy:     policy,
		status:     VehicleStatusActive,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Vehicle from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	ownerEmail, title, plate string,
	policy pricing.VehicleRentalPolicy,
	status VehicleStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:         id,
		ownerID:    ownerID,
		ownerEmail: ownerEmail,
		title:      title,
		plate:      plate,
		policy:     policy,
		status:     status,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// --- Getters ---

func (v *Vehicle) ID() uuid.UUID                       { return v.id }
func (v *Vehicle) OwnerID() uuid.UUID                  { return v.ownerID }
func (v *Vehicle) OwnerEmail() string                  { return v.ownerEmail }
func (v *Vehicle) Title() string                       { return v.title }
func (v *Vehicle) Plate() string                       { return v.plate }
func (v *Vehicle) Policy() pricing.VehicleRentalPolicy { return v.policy }
func (v *Vehicle) Status() VehicleStatus               { return v.status }
func (v *Vehicle) Version() int64                      { return v.version }
func (v *Vehicle) CreatedAt() time.Time                { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time                { return v.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the vehicle belongs to the given owner.
func (v *Vehicle) IsOwnedBy(ownerID uuid.UUID) bool {
	return v.ownerID == ownerID
}

// IsActive returns true if the vehicle accepts new bookings.
func (v *Vehicle) IsActive() bool {
	return v.status == VehicleStatusActive
}

// UpdatePolicy replaces the rental policy. Existing bookings keep the
// pricing they were admitted with.
func (v *Vehicle) UpdatePolicy(policy pricing.VehicleRentalPolicy) error {
	if !policy.IsValid() {
		return domain.NewValidationErrorCode(pricing.CodeInvalidPolicy, "a valid rental policy is required")
	}
	v.policy = policy
	v.version++
	v.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate stops the vehicle from accepting new bookings.
func (v *Vehicle) Deactivate() {
	v.status = VehicleStatusInactive
	v.version++
	v.updatedAt = time.Now().UTC()
}

// Activate makes the vehicle bookable again.
func (v *Vehicle) Activate() {
	v.status = VehicleStatusActive
	v.version++
	v.updatedAt = time.Now().UTC()
}
