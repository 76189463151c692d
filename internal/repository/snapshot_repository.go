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
	"gorm.io/gorm/clause"

	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// SnapshotModel is the GORM model for the pricing_snapshots table.
type SnapshotModel struct {
	BookingID uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Breakdown datatypes.JSON `gorm:"type:jsonb;not null"`
	Inputs    datatypes.JSON `gorm:"type:jsonb;not null"`
	Checksum  string         `gorm:"size:64;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SnapshotModel) TableName() string {
	return "pricing_snapshots"
}

// GormSnapshotRepository stores pricing snapshots. Rows are insert-only.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Save inserts the snapshot. A second snapshot for the same booking is a conflict.
func (r *GormSnapshotRepository) Save(ctx context.Context, s bookingDomain.Snapshot) error {
	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	inputs, err := json.Marshal(s.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot inputs: %w", err)
	}

	model := SnapshotModel{
		BookingID: s.BookingID,
		Breakdown: datatypes.JSON(breakdown),
		Inputs:    datatypes.JSON(inputs),
		Checksum:  s.Checksum,
		CreatedAt: s.CreatedAt,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to save pricing snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError(fmt.Sprintf("pricing snapshot for booking %s already exists", s.BookingID))
	}
	return nil
}

// FindByBookingID loads the snapshot of a booking and verifies its checksum.
func (r *GormSnapshotRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*bookingDomain.Snapshot, error) {
	var model SnapshotModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PricingSnapshot", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find pricing snapshot: %w", err)
	}

	var breakdown pricing.Breakdown
	if err := json.Unmarshal(model.Breakdown, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	var inputs bookingDomain.SnapshotInputs
	if err := json.Unmarshal(model.Inputs, &inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot inputs: %w", err)
	}

	s := &bookingDomain.Snapshot{
		BookingID: model.BookingID,
		Breakdown: breakdown,
		Inputs:    inputs,
		Checksum:  model.Checksum,
		CreatedAt: model.CreatedAt.UTC(),
	}
	if err := s.VerifyChecksum(); err != nil {
		return nil, err
	}
	return s, nil
}
