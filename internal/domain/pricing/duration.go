package pricing

import (
	"fmt"
	"time"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// RemainderPolicy decides what happens to leftover hours beyond whole days
// when the vehicle does not bill hourly.
type RemainderPolicy string

const (
	// RemainderAbsorb drops the leftover hours: 26h bills as one day.
	RemainderAbsorb RemainderPolicy = "absorb"
	// RemainderRoundUp bills the leftover hours as one more day: 26h bills as two.
	RemainderRoundUp RemainderPolicy = "round_up"
)

// IsValid reports whether the remainder policy is known.
func (r RemainderPolicy) IsValid() bool {
	return r == RemainderAbsorb || r == RemainderRoundUp
}

// ParseRemainderPolicy converts a string, defaulting to absorb when empty.
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	if s == "" {
		return RemainderAbsorb, nil
	}
	r := RemainderPolicy(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid remainder policy: %s", s)
	}
	return r, nil
}

// RentalType is daily when at least one day is billed, hourly otherwise.
type RentalType string

const (
	RentalTypeDaily  RentalType = "daily"
	RentalTypeHourly RentalType = "hourly"
)

// BillableDuration is the outcome of duration resolution.
type BillableDuration struct {
	TotalHours  int
	RentalDays  int
	RentalHours int
	// AbsorbedHours counts remainder hours neither billed as hours nor rounded up.
	AbsorbedHours int
}

// RentalType derives the rental type from the billed units.
func (d BillableDuration) RentalType() RentalType {
	if d.RentalDays > 0 {
		return RentalTypeDaily
	}
	return RentalTypeHourly
}

// ResolveDuration turns an interval into billable days and hours. Partial
// hours always count as a whole hour.
func ResolveDuration(interval RentalInterval, policy VehicleRentalPolicy, remainder RemainderPolicy) (BillableDuration, error) {
	if !interval.End.After(interval.Start) {
		return BillableDuration{}, domain.NewValidationErrorCode(CodeInvalidInterval, "end must be after start")
	}
	if interval.Duration() > MaxRentalDuration {
		return BillableDuration{}, domain.NewValidationErrorCode(CodeInvalidInterval, "interval is longer than the maximum rental duration")
	}
	if !policy.IsValid() {
		return BillableDuration{}, invalidPolicy("rental policy was not validated")
	}

	d := interval.Duration()
	totalHours := int(d / time.Hour)
	if d%time.Hour != 0 {
		totalHours++
	}

	out := BillableDuration{TotalHours: totalHours}
	hourly := policy.HourlyBillingEnabled()

	if totalHours >= 24 {
		out.RentalDays = totalHours / 24
		rest := totalHours % 24
		switch {
		case rest == 0:
		case hourly:
			out.RentalHours = rest
		case remainder == RemainderRoundUp:
			out.RentalDays++
		default:
			out.AbsorbedHours = rest
		}
	} else {
		switch {
		case hourly:
			out.RentalHours = totalHours
		case policy.terms.SubDayRequiresHourly:
			return BillableDuration{}, domain.NewValidationErrorCode(CodeHourlyNotSupported,
				fmt.Sprintf("rentals shorter than a day are not available for this vehicle (%dh requested)", totalHours))
		default:
			out.RentalDays = 1
		}
	}

	if out.RentalDays > 0 && out.RentalDays < policy.terms.MinRentalDays {
		return BillableDuration{}, domain.NewValidationErrorCode(CodeBelowMinimumDuration,
			fmt.Sprintf("minimum rental is %d days, got %d", policy.terms.MinRentalDays, out.RentalDays))
	}
	if out.RentalHours > 0 && out.RentalHours < policy.terms.MinRentalHours {
		return BillableDuration{}, domain.NewValidationErrorCode(CodeBelowMinimumDuration,
			fmt.Sprintf("minimum hourly rental is %d hours, got %d", policy.terms.MinRentalHours, out.RentalHours))
	}
	return out, nil
}
