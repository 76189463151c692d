package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
)

// GormAvailabilityOracle answers overlap queries from the bookings table.
type GormAvailabilityOracle struct {
	db *gorm.DB
}

// NewGormAvailabilityOracle creates a new GormAvailabilityOracle.
func NewGormAvailabilityOracle(db *gorm.DB) *GormAvailabilityOracle {
	return &GormAvailabilityOracle{db: db}
}

// CheckAvailability counts live bookings overlapping q.Interval. Any storage
// failure is reported as Indeterminate.
func (o *GormAvailabilityOracle) CheckAvailability(ctx context.Context, q availability.Query) (availability.Outcome, error) {
	query := o.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("vehicle_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
			q.VehicleID, string(bookingDomain.StatusCancelled), q.Interval.End.UTC(), q.Interval.Start.UTC())
	if q.ExcludeBookingID != nil {
		query = query.Where("id <> ?", *q.ExcludeBookingID)
	}

	var overlapping int64
	if err := query.Count(&overlapping).Error; err != nil {
		return availability.Indeterminate, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	if overlapping > 0 {
		return availability.Unavailable, nil
	}
	return availability.Available, nil
}
