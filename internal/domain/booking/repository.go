package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
// Bookings are never deleted.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByRenterID retrieves bookings made by a renter with pagination.
	FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByOwnerID retrieves bookings on an owner's vehicles with pagination.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByStatus retrieves up to limit bookings in the given status, oldest first.
	FindByStatus(ctx context.Context, status BookingStatus, limit int) ([]*Booking, error)

	// FindDueForCompletion retrieves confirmed bookings whose interval ended at or before now.
	FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*Booking, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Create atomically re-checks the slot and inserts the booking. It
	// returns a conflict error when another booking holds an overlapping slot.
	Create(ctx context.Context, booking *Booking) error

	// Update persists a status transition with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
