package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// Category selects the platform fee rates.
type Category string

const CategoryVehicle Category = "vehicle"

// FeeRates are the traveler service fee and host commission rates, before VAT.
type FeeRates struct {
	Traveler decimal.Decimal
	Host     decimal.Decimal
}

var categoryRates = map[Category]FeeRates{
	CategoryVehicle: {
		Traveler: decimal.RequireFromString("0.10"),
		Host:     decimal.RequireFromString("0.02"),
	},
}

// RatesFor returns the fee rates of a category.
func RatesFor(c Category) (FeeRates, error) {
	r, ok := categoryRates[c]
	if !ok {
		return FeeRates{}, domain.NewValidationErrorCode(CodeUnknownCategory, fmt.Sprintf("unknown fee category: %s", c))
	}
	return r, nil
}

// FeeAmount is a fee split into its pre-tax part and VAT. Total = HT + VAT.
type FeeAmount struct {
	Total int64 `json:"total"`
	HT    int64 `json:"ht"`
	VAT   int64 `json:"vat"`
}

// ComputeFee applies rate to base to get HT, then VAT on top.
// The VAT part absorbs rounding so the split always adds up.
func ComputeFee(base int64, rate, vatRate decimal.Decimal) FeeAmount {
	ht := decimal.NewFromInt(base).Mul(rate).Round(0).IntPart()
	total := decimal.NewFromInt(ht).Mul(decimal.NewFromInt(1).Add(vatRate)).Round(0).IntPart()
	return FeeAmount{Total: total, HT: ht, VAT: total - ht}
}

// Fees is the outcome of fee calculation for a booking.
type Fees struct {
	ServiceFee     FeeAmount
	HostCommission FeeAmount
	HostNetAmount  int64
}

// CalculateFees computes the traveler service fee and host commission on
// basePriceWithDriver. The security deposit is never part of the base.
func CalculateFees(category Category, basePriceWithDriver int64, vatRate decimal.Decimal) (Fees, error) {
	if basePriceWithDriver < 0 {
		return Fees{}, domain.NewValidationError("fee base cannot be negative")
	}
	rates, err := RatesFor(category)
	if err != nil {
		return Fees{}, err
	}
	service := ComputeFee(basePriceWithDriver, rates.Traveler, vatRate)
	host := ComputeFee(basePriceWithDriver, rates.Host, vatRate)
	return Fees{
		ServiceFee:     service,
		HostCommission: host,
		HostNetAmount:  basePriceWithDriver - host.Total,
	}, nil
}
