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

	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/database"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BookingNumber      string         `gorm:"uniqueIndex;not null;size:20"`
	VehicleID          uuid.UUID      `gorm:"type:uuid;index;not null"`
	OwnerID            uuid.UUID      `gorm:"type:uuid;index;not null"`
	RenterID           uuid.UUID      `gorm:"type:uuid;index;not null"`
	RenterEmail        string         `gorm:"size:255;not null"`
	OwnerEmail         string         `gorm:"size:255;not null"`
	StartAt            time.Time      `gorm:"not null"`
	EndAt              time.Time      `gorm:"not null"`
	RentalType         string         `gorm:"size:10;not null"`
	Pricing            datatypes.JSON `gorm:"type:jsonb;not null"`
	TotalPrice         int64          `gorm:"not null"`
	Currency           string         `gorm:"size:3;not null"`
	PaymentMethod      string         `gorm:"size:10;not null"`
	WithDriver         bool           `gorm:"not null"`
	LicenseNumber      string         `gorm:"size:50;not null"`
	Status             string         `gorm:"size:30;index;not null"`
	PaymentExpiresAt   *time.Time     `gorm:""`
	ConfirmedAt        *time.Time     `gorm:""`
	CompletedAt        *time.Time     `gorm:""`
	CancelledAt        *time.Time     `gorm:""`
	CancellationReason string         `gorm:"size:500;not null"`
	CancelledBy        string         `gorm:"size:10;not null"`
	Version            int64          `gorm:"not null;default:1"`
	CreatedAt          time.Time      `gorm:"not null"`
	UpdatedAt          time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByRenterID retrieves bookings made by a renter with pagination.
func (r *GormBookingRepository) FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(r.db.WithContext(ctx).Where("renter_id = ?", renterID), page, limit)
}

// FindByOwnerID retrieves bookings on an owner's vehicles with pagination.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(r.db.WithContext(ctx).Where("owner_id = ?", ownerID), page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.paginate(r.db.WithContext(ctx), page, limit)
}

func (r *GormBookingRepository) paginate(scope *gorm.DB, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := scope.Session(&gorm.Session{}).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := scope.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// FindByStatus retrieves up to limit bookings in the given status, oldest first.
func (r *GormBookingRepository) FindByStatus(ctx context.Context, status bookingDomain.BookingStatus, limit int) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings by status: %w", err)
	}
	return toDomainBookings(models)
}

// FindDueForCompletion retrieves confirmed bookings whose interval ended at or before now.
func (r *GormBookingRepository) FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", string(bookingDomain.StatusConfirmed), now.UTC()).
		Order("end_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings due for completion: %w", err)
	}
	return toDomainBookings(models)
}

// Create re-checks the slot and inserts the booking in one transaction. On
// PostgreSQL a per-vehicle advisory lock serialises concurrent submissions and
// the bookings_no_overlap constraint rejects anything that slips through.
func (r *GormBookingRepository) Create(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", model.VehicleID.String()).Error; err != nil {
				return fmt.Errorf("failed to lock vehicle: %w", err)
			}
		}

		var overlapping int64
		if err := tx.Model(&BookingModel{}).
			Where("vehicle_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
				model.VehicleID, string(bookingDomain.StatusCancelled), model.EndAt, model.StartAt).
			Count(&overlapping).Error; err != nil {
			return fmt.Errorf("failed to check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return slotTaken()
		}

		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.KindConflict) {
		return err
	}
	if database.IsConflict(err) {
		return slotTaken()
	}
	return fmt.Errorf("failed to create booking: %w", err)
}

func slotTaken() error {
	return domain.NewConflictErrorCode(availability.CodeSlotUnavailable,
		"vehicle is already booked for an overlapping period")
}

// Update persists a status transition with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion has already been called on the aggregate.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"confirmed_at":        model.ConfirmedAt,
			"completed_at":        model.CompletedAt,
			"cancelled_at":        model.CancelledAt,
			"cancellation_reason": model.CancellationReason,
			"cancelled_by":        model.CancelledBy,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		if database.IsConflict(result.Error) {
			return domain.NewConflictError("booking update conflicts with another booking")
		}
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	pricingJSON, err := json.Marshal(bk.Pricing())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pricing: %w", err)
	}

	return &BookingModel{
		ID:                 bk.ID(),
		BookingNumber:      bk.BookingNumber(),
		VehicleID:          bk.VehicleID(),
		OwnerID:            bk.OwnerID(),
		RenterID:           bk.RenterID(),
		RenterEmail:        bk.RenterEmail(),
		OwnerEmail:         bk.OwnerEmail(),
		StartAt:            bk.Interval().Start,
		EndAt:              bk.Interval().End,
		RentalType:         string(bk.RentalType()),
		Pricing:            datatypes.JSON(pricingJSON),
		TotalPrice:         bk.Pricing().TotalPrice,
		Currency:           bk.Pricing().Currency,
		PaymentMethod:      string(bk.PaymentMethod()),
		WithDriver:         bk.WithDriver(),
		LicenseNumber:      bk.LicenseNumber(),
		Status:             string(bk.Status()),
		PaymentExpiresAt:   bk.PaymentExpiresAt(),
		ConfirmedAt:        bk.ConfirmedAt(),
		CompletedAt:        bk.CompletedAt(),
		CancelledAt:        bk.CancelledAt(),
		CancellationReason: bk.CancellationReason(),
		CancelledBy:        string(bk.CancelledBy()),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var breakdown pricing.Breakdown
	if err := json.Unmarshal(m.Pricing, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(bookingDomain.ReconstructParams{
		ID:                 m.ID,
		BookingNumber:      m.BookingNumber,
		VehicleID:          m.VehicleID,
		OwnerID:            m.OwnerID,
		RenterID:           m.RenterID,
		RenterEmail:        m.RenterEmail,
		OwnerEmail:         m.OwnerEmail,
		Interval:           pricing.RentalInterval{Start: m.StartAt.UTC(), End: m.EndAt.UTC()},
		RentalType:         pricing.RentalType(m.RentalType),
		Pricing:            breakdown,
		PaymentMethod:      bookingDomain.PaymentMethod(m.PaymentMethod),
		WithDriver:         m.WithDriver,
		LicenseNumber:      m.LicenseNumber,
		Status:             status,
		PaymentExpiresAt:   utcPtr(m.PaymentExpiresAt),
		ConfirmedAt:        utcPtr(m.ConfirmedAt),
		CompletedAt:        utcPtr(m.CompletedAt),
		CancelledAt:        utcPtr(m.CancelledAt),
		CancellationReason: m.CancellationReason,
		CancelledBy:        bookingDomain.CancelledBy(m.CancelledBy),
		Version:            m.Version,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
