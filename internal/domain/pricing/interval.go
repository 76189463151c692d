package pricing

import (
	"fmt"
	"time"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// MaxRentalDuration is the longest interval that can be priced or booked.
const MaxRentalDuration = 366 * 24 * time.Hour

// RentalInterval is a half-open [Start, End) rental period.
type RentalInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRentalInterval validates that end is strictly after start and that the
// interval is no longer than MaxRentalDuration. Both
// instants are normalised to UTC.
func NewRentalInterval(start, end time.Time) (RentalInterval, error) {
	if start.IsZero() || end.IsZero() {
		return RentalInterval{}, domain.NewValidationErrorCode(CodeInvalidInterval, "start and end are required")
	}
	if !end.After(start) {
		return RentalInterval{}, domain.NewValidationErrorCode(CodeInvalidInterval,
			fmt.Sprintf("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}
	if end.Sub(start) > MaxRentalDuration {
		return RentalInterval{}, domain.NewValidationErrorCode(CodeInvalidInterval,
			fmt.Sprintf("rental cannot exceed %d days", int(MaxRentalDuration/(24*time.Hour))))
	}
	return RentalInterval{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration returns End - Start.
func (i RentalInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports a true overlap: touching intervals do not overlap.
func (i RentalInterval) Overlaps(other RentalInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether t falls inside [Start, End).
func (i RentalInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
