package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
)

// SnapshotInputs are the raw inputs a breakdown was computed from.
type SnapshotInputs struct {
	Interval        pricing.RentalInterval  `json:"interval"`
	Policy          pricing.PolicyTerms     `json:"policy"`
	WithDriver      bool                    `json:"with_driver"`
	RemainderPolicy pricing.RemainderPolicy `json:"remainder_policy"`
	Category        pricing.Category        `json:"category"`
	VATRate         string                  `json:"vat_rate"`
	Currency        string                  `json:"currency"`
	DisplayCurrency string                  `json:"display_currency,omitempty"`
	DisplayRate     string                  `json:"display_rate,omitempty"`
}

// Snapshot is the immutable record of how a booking was priced.
type Snapshot struct {
	BookingID uuid.UUID         `json:"booking_id"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Inputs    SnapshotInputs    `json:"inputs"`
	Checksum  string            `json:"checksum"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewSnapshot seals a breakdown and its inputs with a checksum.
func NewSnapshot(bookingID uuid.UUID, breakdown pricing.Breakdown, inputs SnapshotInputs, now time.Time) (Snapshot, error) {
	s := Snapshot{
		BookingID: bookingID,
		Breakdown: breakdown,
		Inputs:    inputs,
		CreatedAt: now.UTC(),
	}
	sum, err := s.computeChecksum()
	if err != nil {
		return Snapshot{}, err
	}
	s.Checksum = sum
	return s, nil
}

// VerifyChecksum recomputes the checksum and compares it to the stored one.
func (s Snapshot) VerifyChecksum() error {
	sum, err := s.computeChecksum()
	if err != nil {
		return err
	}
	if sum != s.Checksum {
		return fmt.Errorf("snapshot checksum mismatch for booking %s", s.BookingID)
	}
	return nil
}

func (s Snapshot) computeChecksum() (string, error) {
	payload, err := json.Marshal(struct {
		BookingID uuid.UUID         `json:"booking_id"`
		Breakdown pricing.Breakdown `json:"breakdown"`
		Inputs    SnapshotInputs    `json:"inputs"`
	}{s.BookingID, s.Breakdown, s.Inputs})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// SnapshotStore persists snapshots. Save never overwrites an existing snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Snapshot, error)
}
