package booking

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Booking event types published on TopicBookingEvents.
const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
)

// Payment event types consumed from TopicPaymentEvents.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// BookingRequestedEvent is published after a booking is admitted.
type BookingRequestedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	RenterID      uuid.UUID `json:"renter_id"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	TotalPrice    int64     `json:"total_price"`
	HostNetAmount int64     `json:"host_net_amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is published for confirmed, cancelled and completed transitions.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	RenterID      uuid.UUID `json:"renter_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Reason        string    `json:"reason,omitempty"`
	CancelledBy   string    `json:"cancelled_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentEvent is the payload of payment.succeeded and payment.failed.
type PaymentEvent struct {
	PaymentID  string    `json:"payment_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
