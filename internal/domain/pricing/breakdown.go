package pricing

import "fmt"

// Breakdown is the complete, immutable result of pricing one rental. All
// amounts are whole XOF.
type Breakdown struct {
	TotalHours          int          `json:"total_hours"`
	RentalDays          int          `json:"rental_days"`
	RentalHours         int          `json:"rental_hours"`
	AbsorbedHours       int          `json:"absorbed_hours"`
	RentalType          RentalType   `json:"rental_type"`
	RateTier            string       `json:"rate_tier"`
	EffectiveDailyRate  int64        `json:"effective_daily_rate"`
	BillingDailyRate    int64        `json:"billing_daily_rate"`
	HourlyRate          int64        `json:"hourly_rate"`
	DaysPrice           int64        `json:"days_price"`
	HoursPrice          int64        `json:"hours_price"`
	OriginalTotal       int64        `json:"original_total"`
	DiscountType        DiscountType `json:"discount_type"`
	DiscountPercentage  float64      `json:"discount_percentage"`
	DiscountAmount      int64        `json:"discount_amount"`
	BasePrice           int64        `json:"base_price"`
	DriverDays          int          `json:"driver_days"`
	DriverFee           int64        `json:"driver_fee"`
	BasePriceWithDriver int64        `json:"base_price_with_driver"`
	ServiceFee          FeeAmount    `json:"service_fee"`
	HostCommission      FeeAmount    `json:"host_commission"`
	TotalPrice          int64        `json:"total_price"`
	HostNetAmount       int64        `json:"host_net_amount"`
	SecurityDeposit     int64        `json:"security_deposit"`
	Currency            string       `json:"currency"`
}

// Verify checks the arithmetic relations between the breakdown's fields. A
// breakdown built by the Engine always verifies; Verify guards data read
// back from storage.
func (b Breakdown) Verify() error {
	switch {
	case b.RentalDays < 0 || b.RentalHours < 0:
		return fmt.Errorf("negative rental units: %d days, %d hours", b.RentalDays, b.RentalHours)
	case b.TotalHours > 0 && b.RentalDays == 0 && b.RentalHours == 0:
		return fmt.Errorf("no billable units for %d hours", b.TotalHours)
	case b.OriginalTotal != b.DaysPrice+b.HoursPrice:
		return fmt.Errorf("original total %d != days %d + hours %d", b.OriginalTotal, b.DaysPrice, b.HoursPrice)
	case b.DiscountAmount < 0 || b.DiscountAmount > b.OriginalTotal:
		return fmt.Errorf("discount %d outside [0, %d]", b.DiscountAmount, b.OriginalTotal)
	case b.DiscountAmount > 0 && b.RentalDays == 0:
		return fmt.Errorf("discount applied to an hourly rental")
	case b.BasePrice != b.OriginalTotal-b.DiscountAmount:
		return fmt.Errorf("base price %d != original %d - discount %d", b.BasePrice, b.OriginalTotal, b.DiscountAmount)
	case b.BasePriceWithDriver != b.BasePrice+b.DriverFee:
		return fmt.Errorf("base with driver %d != base %d + driver %d", b.BasePriceWithDriver, b.BasePrice, b.DriverFee)
	case b.ServiceFee.Total != b.ServiceFee.HT+b.ServiceFee.VAT:
		return fmt.Errorf("service fee split does not add up")
	case b.HostCommission.Total != b.HostCommission.HT+b.HostCommission.VAT:
		return fmt.Errorf("host commission split does not add up")
	case b.TotalPrice != b.BasePriceWithDriver+b.ServiceFee.Total:
		return fmt.Errorf("total %d != base with driver %d + service fee %d", b.TotalPrice, b.BasePriceWithDriver, b.ServiceFee.Total)
	case b.HostNetAmount != b.BasePriceWithDriver-b.HostCommission.Total:
		return fmt.Errorf("host net %d != base with driver %d - commission %d", b.HostNetAmount, b.BasePriceWithDriver, b.HostCommission.Total)
	}
	return nil
}
