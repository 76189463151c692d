package pricing

import "github.com/shopspring/decimal"

// SelectedRate holds the two per-day rates the engine needs.
type SelectedRate struct {
	// Effective is the blended per-day rate shown to the renter.
	Effective int64
	// Billing is the flat daily rate days are actually charged at.
	Billing int64
	// Tier names the tier Effective was computed from.
	Tier string
}

// Rate tiers.
const (
	TierDaily   = "daily"
	TierWeekly  = "weekly"
	TierMonthly = "monthly"
)

// SelectRate picks the display rate tier for a number of rental days.
func SelectRate(rentalDays int, policy VehicleRentalPolicy) SelectedRate {
	daily := policy.terms.DailyRate
	out := SelectedRate{Effective: daily, Billing: daily, Tier: TierDaily}
	if rentalDays <= 0 {
		return out
	}

	if m := policy.terms.MonthlyRate; m != nil && rentalDays >= 30 {
		out.Effective = blendedRate(rentalDays, 30, *m, daily)
		out.Tier = TierMonthly
		return out
	}
	if w := policy.terms.WeeklyRate; w != nil && rentalDays >= 7 {
		out.Effective = blendedRate(rentalDays, 7, *w, daily)
		out.Tier = TierWeekly
	}
	return out
}

// blendedRate is (floor(d/period)*periodRate + (d%period)*daily) / d, rounded.
func blendedRate(days, period int, periodRate, daily int64) int64 {
	full := int64(days / period)
	rest := int64(days % period)
	total := decimal.NewFromInt(full*periodRate + rest*daily)
	return total.Div(decimal.NewFromInt(int64(days))).Round(0).IntPart()
}
