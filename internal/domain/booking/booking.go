package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain. It is created once
// per accepted submission and only ever changes through status transitions.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	vehicleID     uuid.UUID
	ownerID       uuid.UUID
	renterID      uuid.UUID
	renterEmail   string
	ownerEmail    string

	interval      pricing.RentalInterval
	rentalType    pricing.RentalType
	pricing       pricing.Breakdown
	paymentMethod PaymentMethod
	withDriver    bool
	licenseNumber string

	status             BookingStatus
	paymentExpiresAt   *time.Time
	confirmedAt        *time.Time
	completedAt        *time.Time
	cancelledAt        *time.Time
	cancellationReason string
	cancelledBy        CancelledBy

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "LK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "LK-" + string(result), nil
}

// NewBookingParams holds everything needed to create a booking.
type NewBookingParams struct {
	VehicleID     uuid.UUID
	OwnerID       uuid.UUID
	RenterID      uuid.UUID
	RenterEmail   string
	OwnerEmail    string
	Interval      pricing.RentalInterval
	Pricing       pricing.Breakdown
	PaymentMethod PaymentMethod
	WithDriver    bool
	LicenseNumber string
	Status        BookingStatus
	PaymentDue    *time.Time
	CreatedAt     time.Time
}

// NewBooking creates a new Booking aggregate in one of the admission statuses.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if p.VehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}
	if p.RenterID == uuid.Nil {
		return nil, domain.NewValidationError("renter ID is required")
	}
	if p.OwnerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if p.RenterID == p.OwnerID {
		return nil, domain.NewValidationError("owners cannot book their own vehicle")
	}
	if !p.Interval.End.After(p.Interval.Start) {
		return nil, domain.NewValidationErrorCode(pricing.CodeInvalidInterval, "end must be after start")
	}
	if !p.PaymentMethod.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid payment method: %s", p.PaymentMethod))
	}
	if !p.WithDriver && strings.TrimSpace(p.LicenseNumber) == "" {
		return nil, domain.NewValidationErrorCode("LICENSE_REQUIRED", "a driving licence number is required when renting without a driver")
	}
	if err := p.Pricing.Verify(); err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("inconsistent pricing: %v", err))
	}
	switch p.Status {
	case StatusPendingPayment:
		if p.PaymentDue == nil {
			return nil, domain.NewValidationError("payment deadline is required for card bookings")
		}
	case StatusPendingApproval, StatusConfirmed:
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("%s is not an admission status", p.Status))
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := p.CreatedAt.UTC()
	bk := &Booking{
		id:               uuid.New(),
		bookingNumber:    bookingNumber,
		vehicleID:        p.VehicleID,
		ownerID:          p.OwnerID,
		renterID:         p.RenterID,
		renterEmail:      p.RenterEmail,
		ownerEmail:       p.OwnerEmail,
		interval:         p.Interval,
		rentalType:       p.Pricing.RentalType,
		pricing:          p.Pricing,
		paymentMethod:    p.PaymentMethod,
		withDriver:       p.WithDriver,
		licenseNumber:    strings.TrimSpace(p.LicenseNumber),
		status:           p.Status,
		paymentExpiresAt: p.PaymentDue,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}
	if p.Status == StatusConfirmed {
		bk.confirmedAt = &now
	}
	return bk, nil
}

// ReconstructParams mirrors every persisted field of a Booking.
type ReconstructParams struct {
	ID                 uuid.UUID
	BookingNumber      string
	VehicleID          uuid.UUID
	OwnerID            uuid.UUID
	RenterID           uuid.UUID
	RenterEmail        string
	OwnerEmail         string
	Interval           pricing.RentalInterval
	RentalType         pricing.RentalType
	Pricing            pricing.Breakdown
	PaymentMethod      PaymentMethod
	WithDriver         bool
	LicenseNumber      string
	Status             BookingStatus
	PaymentExpiresAt   *time.Time
	ConfirmedAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	CancelledBy        CancelledBy
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(p ReconstructParams) *Booking {
	return &Booking{
		id:                 p.ID,
		bookingNumber:      p.BookingNumber,
		vehicleID:          p.VehicleID,
		ownerID:            p.OwnerID,
		renterID:           p.RenterID,
		renterEmail:        p.RenterEmail,
		ownerEmail:         p.OwnerEmail,
		interval:           p.Interval,
		rentalType:         p.RentalType,
		pricing:            p.Pricing,
		paymentMethod:      p.PaymentMethod,
		withDriver:         p.WithDriver,
		licenseNumber:      p.LicenseNumber,
		status:             p.Status,
		paymentExpiresAt:   p.PaymentExpiresAt,
		confirmedAt:        p.ConfirmedAt,
		completedAt:        p.CompletedAt,
		cancelledAt:        p.CancelledAt,
		cancellationReason: p.CancellationReason,
		cancelledBy:        p.CancelledBy,
		version:            p.Version,
		createdAt:          p.CreatedAt,
		updatedAt:          p.UpdatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// VehicleID returns the booked vehicle.
func (b *Booking) VehicleID() uuid.UUID { return b.vehicleID }

// OwnerID returns the vehicle owner's user ID.
func (b *Booking) OwnerID() uuid.UUID { return b.ownerID }

// RenterID returns the renter's user ID.
func (b *Booking) RenterID() uuid.UUID { return b.renterID }

// RenterEmail returns the renter's contact email.
func (b *Booking) RenterEmail() string { return b.renterEmail }

// OwnerEmail returns the owner's contact email.
func (b *Booking) OwnerEmail() string { return b.ownerEmail }

// Interval returns the rental interval.
func (b *Booking) Interval() pricing.RentalInterval { return b.interval }

// RentalType returns daily or hourly.
func (b *Booking) RentalType() pricing.RentalType { return b.rentalType }

// Pricing returns the breakdown computed at submission.
func (b *Booking) Pricing() pricing.Breakdown { return b.pricing }

// PaymentMethod returns the chosen payment method.
func (b *Booking) PaymentMethod() PaymentMethod { return b.paymentMethod }

// WithDriver reports whether the renter asked for a driver.
func (b *Booking) WithDriver() bool { return b.withDriver }

// LicenseNumber returns the renter's driving licence number, empty with a driver.
func (b *Booking) LicenseNumber() string { return b.licenseNumber }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// PaymentExpiresAt returns the payment deadline of card bookings.
func (b *Booking) PaymentExpiresAt() *time.Time { return b.paymentExpiresAt }

// ConfirmedAt returns when the booking was confirmed.
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

// CompletedAt returns when the booking was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancellationReason returns the cancellation reason.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// CancelledBy returns who cancelled the booking.
func (b *Booking) CancelledBy() CancelledBy { return b.cancelledBy }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// ConfirmPayment moves a card booking from pending_payment to confirmed.
func (b *Booking) ConfirmPayment(now time.Time) error {
	if b.status != StatusPendingPayment {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	return b.confirm(now)
}

// Approve records the owner's acceptance of a pending_approval booking.
func (b *Booking) Approve(now time.Time) error {
	if b.status != StatusPendingApproval {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	return b.confirm(now)
}

func (b *Booking) confirm(now time.Time) error {
	now = now.UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// Complete transitions a confirmed booking to completed once its interval has ended.
func (b *Booking) Complete(now time.Time) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if now.Before(b.interval.End) {
		return domain.NewValidationError("booking cannot complete before its end time")
	}
	now = now.UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled if it is not in a terminal state.
func (b *Booking) Cancel(reason string, by CancelledBy, now time.Time) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now = now.UTC()
	b.status = StatusCancelled
	b.cancellationReason = reason
	b.cancelledBy = by
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// IsPaymentExpired reports whether a pending_payment booking has reached its deadline.
func (b *Booking) IsPaymentExpired(now time.Time) bool {
	return b.status == StatusPendingPayment &&
		b.paymentExpiresAt != nil &&
		!now.Before(*b.paymentExpiresAt)
}

// IsDueForCompletion reports whether a confirmed booking's interval has ended.
func (b *Booking) IsDueForCompletion(now time.Time) bool {
	return b.status == StatusConfirmed && !now.Before(b.interval.End)
}

// IsParticipant reports whether the user is the renter or the owner.
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return userID == b.renterID || userID == b.ownerID
}

// IncrementVersion bumps the version for optimistic locking. updatedAt is
// left to the transition that caused the write.
func (b *Booking) IncrementVersion() {
	b.version++
}
