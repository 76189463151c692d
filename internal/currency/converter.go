// Package currency converts canonical XOF amounts into display currencies.
// Conversions are for presentation only; every stored amount stays in XOF.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// XOFPerEUR is the fixed CFA franc peg.
var XOFPerEUR = decimal.RequireFromString("655.957")

// Converter turns XOF amounts into EUR or USD.
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter creates a Converter. xofPerUSD is the configured USD rate;
// zero or negative disables USD.
func NewConverter(xofPerUSD decimal.Decimal) *Converter {
	rates := map[string]decimal.Decimal{
		domain.CurrencyXOF: decimal.NewFromInt(1),
		domain.CurrencyEUR: XOFPerEUR,
	}
	if xofPerUSD.IsPositive() {
		rates[domain.CurrencyUSD] = xofPerUSD
	}
	return &Converter{rates: rates}
}

// Rate returns how many XOF one unit of code is worth.
func (c *Converter) Rate(code string) (decimal.Decimal, error) {
	rate, ok := c.rates[strings.ToUpper(code)]
	if !ok {
		return decimal.Zero, domain.NewValidationErrorCode("UNSUPPORTED_CURRENCY",
			fmt.Sprintf("unsupported display currency: %s", code))
	}
	return rate, nil
}

// Convert converts a whole-XOF amount to code, rounded to two decimals.
func (c *Converter) Convert(amountXOF int64, code string) (decimal.Decimal, error) {
	rate, err := c.Rate(code)
	if err != nil {
		return decimal.Zero, err
	}
	places := int32(2)
	if strings.ToUpper(code) == domain.CurrencyXOF {
		places = 0
	}
	return decimal.NewFromInt(amountXOF).Div(rate).Round(places), nil
}

// DisplayAmounts is a converted view of the customer-facing breakdown figures.
type DisplayAmounts struct {
	Currency            string          `json:"currency"`
	Rate                decimal.Decimal `json:"rate"`
	BasePrice           decimal.Decimal `json:"base_price"`
	DriverFee           decimal.Decimal `json:"driver_fee"`
	BasePriceWithDriver decimal.Decimal `json:"base_price_with_driver"`
	ServiceFee          decimal.Decimal `json:"service_fee"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	SecurityDeposit     decimal.Decimal `json:"security_deposit"`
}

// Amounts groups the XOF figures to convert.
type Amounts struct {
	BasePrice           int64
	DriverFee           int64
	BasePriceWithDriver int64
	ServiceFee          int64
	TotalPrice          int64
	SecurityDeposit     int64
}

// Display converts a set of amounts in one go.
func (c *Converter) Display(a Amounts, code string) (*DisplayAmounts, error) {
	rate, err := c.Rate(code)
	if err != nil {
		return nil, err
	}
	conv := func(v int64) decimal.Decimal {
		out, _ := c.Convert(v, code)
		return out
	}
	return &DisplayAmounts{
		Currency:            strings.ToUpper(code),
		Rate:                rate,
		BasePrice:           conv(a.BasePrice),
		DriverFee:           conv(a.DriverFee),
		BasePriceWithDriver: conv(a.BasePriceWithDriver),
		ServiceFee:          conv(a.ServiceFee),
		TotalPrice:          conv(a.TotalPrice),
		SecurityDeposit:     conv(a.SecurityDeposit),
	}, nil
}
