// Package receipt renders booking receipts as PDF.
package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
)

// Data is everything printed on a receipt.
type Data struct {
	BookingNumber string
	VehicleTitle  string
	RenterEmail   string
	Status        string
	PaymentMethod string
	Interval      pricing.RentalInterval
	Breakdown     pricing.Breakdown
	Recomputed    bool
	IssuedAt      time.Time
}

// Line is one row of the receipt's price table.
type Line struct {
	Label  string
	Amount string
}

// Lines returns the price table for b. Zero-valued optional lines are omitted.
func Lines(b pricing.Breakdown) []Line {
	cur := b.Currency
	var lines []Line
	if b.RentalDays > 0 {
		lines = append(lines, Line{
			Label:  fmt.Sprintf("%d day(s) x %s", b.RentalDays, FormatAmount(b.BillingDailyRate, cur)),
			Amount: FormatAmount(b.DaysPrice, cur),
		})
	}
	if b.RentalHours > 0 {
		lines = append(lines, Line{
			Label:  fmt.Sprintf("%d hour(s) x %s", b.RentalHours, FormatAmount(b.HourlyRate, cur)),
			Amount: FormatAmount(b.HoursPrice, cur),
		})
	}
	if b.DiscountAmount > 0 {
		lines = append(lines, Line{
			Label:  fmt.Sprintf("Discount (%s, %g%%)", strings.ReplaceAll(string(b.DiscountType), "_", "-"), b.DiscountPercentage),
			Amount: "-" + FormatAmount(b.DiscountAmount, cur),
		})
	}
	if b.DriverFee > 0 {
		lines = append(lines, Line{
			Label:  fmt.Sprintf("Driver (%d day(s))", b.DriverDays),
			Amount: FormatAmount(b.DriverFee, cur),
		})
	}
	lines = append(lines,
		Line{Label: "Service fee (incl. VAT " + FormatAmount(b.ServiceFee.VAT, cur) + ")", Amount: FormatAmount(b.ServiceFee.Total, cur)},
		Line{Label: "Total", Amount: FormatAmount(b.TotalPrice, cur)},
	)
	if b.SecurityDeposit > 0 {
		lines = append(lines, Line{Label: "Security deposit (held, not charged)", Amount: FormatAmount(b.SecurityDeposit, cur)})
	}
	return lines
}

// FormatAmount renders whole currency units with thin grouping, e.g. "67 080 XOF".
func FormatAmount(v int64, currency string) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + " " + currency
	if neg {
		out = "-" + out
	}
	return out
}

// Render builds the PDF for d.
func Render(d Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Booking receipt", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, d.BookingNumber, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Vehicle: "+d.VehicleTitle, props.Text{Top: 0}),
			text.New("Renter: "+d.RenterEmail, props.Text{Top: 5}),
			text.New("Payment: "+d.PaymentMethod, props.Text{Top: 10}),
			text.New("Status: "+d.Status, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("From: "+d.Interval.Start.Format("2006-01-02 15:04 MST"), props.Text{Align: align.Right}),
			text.New("To: "+d.Interval.End.Format("2006-01-02 15:04 MST"), props.Text{Align: align.Right, Top: 5}),
			text.New("Issued: "+d.IssuedAt.UTC().Format("2006-01-02"), props.Text{Align: align.Right, Top: 10}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range Lines(d.Breakdown) {
		m.AddRow(8,
			text.NewCol(8, line.Label, props.Text{Size: 9}),
			text.NewCol(4, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	if d.Recomputed {
		m.AddRow(12,
			text.NewCol(12, "Amounts recomputed from the vehicle's current rental terms.", props.Text{Size: 8, Style: fontstyle.Italic, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return doc.GetBytes(), nil
}
