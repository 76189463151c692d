package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// DefaultVATRate is the VAT applied to platform fees unless configured otherwise.
var DefaultVATRate = decimal.RequireFromString("0.18")

// Config holds the engine settings that are not per-vehicle.
type Config struct {
	VATRate   decimal.Decimal
	Remainder RemainderPolicy
	Category  Category
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{VATRate: DefaultVATRate, Remainder: RemainderAbsorb, Category: CategoryVehicle}
}

// Request is the input to a single pricing run.
type Request struct {
	Interval   RentalInterval
	Policy     VehicleRentalPolicy
	WithDriver bool
}

// Engine prices rentals. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.VATRate.IsNegative() || cfg.VATRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("vat rate must be in [0, 1), got %s", cfg.VATRate)
	}
	if !cfg.Remainder.IsValid() {
		return nil, fmt.Errorf("invalid remainder policy: %q", cfg.Remainder)
	}
	if _, err := RatesFor(cfg.Category); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Quote prices req. It performs no I/O and returns the same breakdown for
// the same inputs.
func (e *Engine) Quote(req Request) (Breakdown, error) {
	duration, err := ResolveDuration(req.Interval, req.Policy, e.cfg.Remainder)
	if err != nil {
		return Breakdown{}, err
	}
	if req.WithDriver && !req.Policy.OffersDriver() {
		return Breakdown{}, domain.NewValidationErrorCode(CodeDriverNotOffered, "this vehicle is not offered with a driver")
	}

	rate := SelectRate(duration.RentalDays, req.Policy)
	hourlyRate := req.Policy.hourlyRate()
	daysPrice := int64(duration.RentalDays) * rate.Billing
	hoursPrice := int64(duration.RentalHours) * hourlyRate
	originalTotal := daysPrice + hoursPrice

	discount := SelectDiscount(duration.RentalDays, daysPrice, req.Policy)
	basePrice := originalTotal - discount.Amount

	var driverDays int
	var driverFee int64
	if req.WithDriver {
		driverDays = duration.RentalDays
		if duration.RentalHours > 0 {
			driverDays++
		}
		driverFee = int64(driverDays) * req.Policy.driverFee()
	}
	basePriceWithDriver := basePrice + driverFee

	fees, err := CalculateFees(e.cfg.Category, basePriceWithDriver, e.cfg.VATRate)
	if err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		TotalHours:          duration.TotalHours,
		RentalDays:          duration.RentalDays,
		RentalHours:         duration.RentalHours,
		AbsorbedHours:       duration.AbsorbedHours,
		RentalType:          duration.RentalType(),
		RateTier:            rate.Tier,
		EffectiveDailyRate:  rate.Effective,
		BillingDailyRate:    rate.Billing,
		HourlyRate:          hourlyRate,
		DaysPrice:           daysPrice,
		HoursPrice:          hoursPrice,
		OriginalTotal:       originalTotal,
		DiscountType:        discount.Type,
		DiscountPercentage:  discount.Percentage,
		DiscountAmount:      discount.Amount,
		BasePrice:           basePrice,
		DriverDays:          driverDays,
		DriverFee:           driverFee,
		BasePriceWithDriver: basePriceWithDriver,
		ServiceFee:          fees.ServiceFee,
		HostCommission:      fees.HostCommission,
		TotalPrice:          basePriceWithDriver + fees.ServiceFee.Total,
		HostNetAmount:       fees.HostNetAmount,
		SecurityDeposit:     req.Policy.SecurityDeposit(),
		Currency:            domain.CurrencyXOF,
	}
	if err := b.Verify(); err != nil {
		return Breakdown{}, fmt.Errorf("pricing produced an inconsistent breakdown: %w", err)
	}
	return b, nil
}
