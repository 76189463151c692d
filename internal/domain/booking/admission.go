package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
)

// DefaultPaymentTimeout is how long a card booking may stay unpaid.
const DefaultPaymentTimeout = 10 * time.Minute

// AdmissionRequest is a priced, availability-checked submission.
type AdmissionRequest struct {
	VehicleID     uuid.UUID
	OwnerID       uuid.UUID
	OwnerEmail    string
	RenterID      uuid.UUID
	RenterEmail   string
	Interval      pricing.RentalInterval
	Pricing       pricing.Breakdown
	Policy        pricing.VehicleRentalPolicy
	PaymentMethod PaymentMethod
	WithDriver    bool
	LicenseNumber string
}

// AdmissionDecider chooses the initial status of a new booking.
type AdmissionDecider struct {
	paymentTimeout time.Duration
}

// NewAdmissionDecider creates an AdmissionDecider. A non-positive timeout
// falls back to DefaultPaymentTimeout.
func NewAdmissionDecider(paymentTimeout time.Duration) *AdmissionDecider {
	if paymentTimeout <= 0 {
		paymentTimeout = DefaultPaymentTimeout
	}
	return &AdmissionDecider{paymentTimeout: paymentTimeout}
}

// PaymentTimeout returns the configured payment window.
func (d *AdmissionDecider) PaymentTimeout() time.Duration { return d.paymentTimeout }

// InitialStatus applies the admission rules: card payments always wait for
// payment, otherwise auto-booking vehicles confirm immediately and the rest
// wait for the owner.
func InitialStatus(method PaymentMethod, autoBooking bool) BookingStatus {
	switch {
	case method == PaymentCard:
		return StatusPendingPayment
	case autoBooking:
		return StatusConfirmed
	default:
		return StatusPendingApproval
	}
}

// Admit builds the booking record for req created at now.
func (d *AdmissionDecider) Admit(req AdmissionRequest, now time.Time) (*Booking, error) {
	status := InitialStatus(req.PaymentMethod, req.Policy.AutoBooking())

	var due *time.Time
	if status == StatusPendingPayment {
		t := now.UTC().Add(d.paymentTimeout)
		due = &t
	}

	return NewBooking(NewBookingParams{
		VehicleID:     req.VehicleID,
		OwnerID:       req.OwnerID,
		RenterID:      req.RenterID,
		RenterEmail:   req.RenterEmail,
		OwnerEmail:    req.OwnerEmail,
		Interval:      req.Interval,
		Pricing:       req.Pricing,
		PaymentMethod: req.PaymentMethod,
		WithDriver:    req.WithDriver,
		LicenseNumber: req.LicenseNumber,
		Status:        status,
		PaymentDue:    due,
		CreatedAt:     now,
	})
}
