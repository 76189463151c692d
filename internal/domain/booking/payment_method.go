package booking

import "fmt"

// PaymentMethod is how the renter settles a booking.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// IsValid returns true for known payment methods.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCard || m == PaymentCash
}

// ParsePaymentMethod converts a string to a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method: %s", s)
	}
	return m, nil
}

// CancelledBy records who cancelled a booking.
type CancelledBy string

const (
	CancelledByRenter CancelledBy = "renter"
	CancelledByOwner  CancelledBy = "owner"
	CancelledBySystem CancelledBy = "system"
)

// Cancellation reasons recorded by the service itself.
const (
	ReasonPaymentTimeout = "payment timeout"
	ReasonOwnerRejected  = "rejected by owner"
)
