package pricing

import "github.com/shopspring/decimal"

// DiscountType identifies which discount, if any, was applied.
type DiscountType string

const (
	DiscountNone     DiscountType = "none"
	DiscountStandard DiscountType = "standard"
	DiscountLongStay DiscountType = "long_stay"
)

// AppliedDiscount is the single discount chosen for a rental.
type AppliedDiscount struct {
	Type       DiscountType
	Percentage float64
	Amount     int64
}

// SelectDiscount applies at most one discount to the day portion of the
// price. Long-stay wins when both qualify. Hours are never discounted.
func SelectDiscount(rentalDays int, daysPrice int64, policy VehicleRentalPolicy) AppliedDiscount {
	none := AppliedDiscount{Type: DiscountNone}
	if rentalDays <= 0 || daysPrice <= 0 {
		return none
	}

	var chosen AppliedDiscount
	switch {
	case policy.terms.LongStayDiscount != nil && policy.terms.LongStayDiscount.qualifies(rentalDays):
		chosen = AppliedDiscount{Type: DiscountLongStay, Percentage: policy.terms.LongStayDiscount.Percentage}
	case policy.terms.StandardDiscount.qualifies(rentalDays):
		chosen = AppliedDiscount{Type: DiscountStandard, Percentage: policy.terms.StandardDiscount.Percentage}
	default:
		return none
	}

	amount := decimal.NewFromInt(daysPrice).
		Mul(decimal.NewFromFloat(chosen.Percentage)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	if amount < 0 {
		amount = 0
	}
	if amount > daysPrice {
		amount = daysPrice
	}
	chosen.Amount = amount
	return chosen
}
