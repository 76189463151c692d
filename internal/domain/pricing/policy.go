package pricing

import (
	"fmt"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// DiscountConfig describes one discount a vehicle offers. MinUnits is in days.
type DiscountConfig struct {
	Enabled    bool    `json:"enabled"`
	MinUnits   int     `json:"min_units,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

func (d DiscountConfig) validate(name string) error {
	if !d.Enabled {
		return nil
	}
	if d.MinUnits < 0 {
		return invalidPolicy("%s discount min units cannot be negative", name)
	}
	if d.Percentage <= 0 || d.Percentage > 100 {
		return invalidPolicy("%s discount percentage must be in (0, 100], got %v", name, d.Percentage)
	}
	return nil
}

// qualifies reports whether a rental of the given day count earns this discount.
func (d DiscountConfig) qualifies(rentalDays int) bool {
	return d.Enabled && rentalDays > 0 && rentalDays >= d.MinUnits
}

// PolicyTerms are the raw rental terms a vehicle owner configures. All
// amounts are whole XOF.
type PolicyTerms struct {
	DailyRate            int64           `json:"daily_rate"`
	HourlyRate           *int64          `json:"hourly_rate,omitempty"`
	WeeklyRate           *int64          `json:"weekly_rate,omitempty"`
	MonthlyRate          *int64          `json:"monthly_rate,omitempty"`
	HourlyBillingEnabled bool            `json:"hourly_billing_enabled"`
	SubDayRequiresHourly bool            `json:"sub_day_requires_hourly"`
	MinRentalDays        int             `json:"min_rental_days"`
	MinRentalHours       int             `json:"min_rental_hours"`
	StandardDiscount     DiscountConfig  `json:"standard_discount"`
	LongStayDiscount     *DiscountConfig `json:"long_stay_discount,omitempty"`
	DriverFee            *int64          `json:"driver_fee,omitempty"`
	WithDriver           bool            `json:"with_driver"`
	SecurityDeposit      int64           `json:"security_deposit"`
	AutoBooking          bool            `json:"auto_booking"`
}

// MaxAmount bounds every configured rate, fee and deposit. Together with
// MaxRentalDuration it keeps all price arithmetic well inside int64.
const MaxAmount int64 = 100_000_000

// VehicleRentalPolicy is a validated, read-only set of PolicyTerms. The zero
// value is not valid; build one with NewVehicleRentalPolicy.
type VehicleRentalPolicy struct {
	terms PolicyTerms
	valid bool
}

// NewVehicleRentalPolicy validates terms once so the engine never has to.
func NewVehicleRentalPolicy(terms PolicyTerms) (VehicleRentalPolicy, error) {
	if terms.DailyRate <= 0 {
		return VehicleRentalPolicy{}, invalidPolicy("daily rate must be positive")
	}
	if terms.DailyRate > MaxAmount {
		return VehicleRentalPolicy{}, invalidPolicy("daily rate cannot exceed %d", MaxAmount)
	}
	for _, r := range []struct {
		name string
		rate *int64
	}{
		{"hourly", terms.HourlyRate},
		{"weekly", terms.WeeklyRate},
		{"monthly", terms.MonthlyRate},
		{"driver", terms.DriverFee},
	} {
		if r.rate == nil {
			continue
		}
		if *r.rate < 0 {
			return VehicleRentalPolicy{}, invalidPolicy("%s rate cannot be negative", r.name)
		}
		if *r.rate > MaxAmount {
			return VehicleRentalPolicy{}, invalidPolicy("%s rate cannot exceed %d", r.name, MaxAmount)
		}
	}
	if terms.SecurityDeposit < 0 || terms.SecurityDeposit > MaxAmount {
		return VehicleRentalPolicy{}, invalidPolicy("security deposit must be in [0, %d]", MaxAmount)
	}
	if terms.MinRentalDays < 1 {
		return VehicleRentalPolicy{}, invalidPolicy("min rental days must be at least 1, got %d", terms.MinRentalDays)
	}
	if terms.MinRentalHours < 0 {
		return VehicleRentalPolicy{}, invalidPolicy("min rental hours cannot be negative")
	}
	if terms.HourlyBillingEnabled && (terms.HourlyRate == nil || *terms.HourlyRate <= 0) {
		return VehicleRentalPolicy{}, invalidPolicy("hourly billing requires a positive hourly rate")
	}
	if err := terms.StandardDiscount.validate("standard"); err != nil {
		return VehicleRentalPolicy{}, err
	}
	if terms.LongStayDiscount != nil {
		if err := terms.LongStayDiscount.validate("long stay"); err != nil {
			return VehicleRentalPolicy{}, err
		}
	}
	return VehicleRentalPolicy{terms: copyTerms(terms), valid: true}, nil
}

// Terms returns a copy of the policy's terms.
func (p VehicleRentalPolicy) Terms() PolicyTerms { return copyTerms(p.terms) }

// IsValid is false only for the zero value.
func (p VehicleRentalPolicy) IsValid() bool { return p.valid }

func (p VehicleRentalPolicy) DailyRate() int64           { return p.terms.DailyRate }
func (p VehicleRentalPolicy) HourlyBillingEnabled() bool { return p.terms.HourlyBillingEnabled }
func (p VehicleRentalPolicy) OffersDriver() bool         { return p.terms.WithDriver }
func (p VehicleRentalPolicy) AutoBooking() bool          { return p.terms.AutoBooking }
func (p VehicleRentalPolicy) SecurityDeposit() int64     { return p.terms.SecurityDeposit }

func (p VehicleRentalPolicy) hourlyRate() int64 {
	if p.terms.HourlyRate == nil {
		return 0
	}
	return *p.terms.HourlyRate
}

func (p VehicleRentalPolicy) driverFee() int64 {
	if p.terms.DriverFee == nil {
		return 0
	}
	return *p.terms.DriverFee
}

func copyTerms(t PolicyTerms) PolicyTerms {
	out := t
	out.HourlyRate = copyInt64(t.HourlyRate)
	out.WeeklyRate = copyInt64(t.WeeklyRate)
	out.MonthlyRate = copyInt64(t.MonthlyRate)
	out.DriverFee = copyInt64(t.DriverFee)
	if t.LongStayDiscount != nil {
		ls := *t.LongStayDiscount
		out.LongStayDiscount = &ls
	}
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func invalidPolicy(format string, args ...interface{}) error {
	return domain.NewValidationErrorCode(CodeInvalidPolicy, fmt.Sprintf(format, args...))
}
