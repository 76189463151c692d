package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/currency"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
	"github.com/Lokato-Mobility/service-booking/internal/receipt"
)

// Where a rendered breakdown came from.
const (
	SourceSnapshot   = "snapshot"
	SourceRecomputed = "recomputed"
	SourceRecord     = "record"
)

// BreakdownView is a booking's pricing as shown to its participants.
type BreakdownView struct {
	BookingID     uuid.UUID                     `json:"booking_id"`
	BookingNumber string                        `json:"booking_number"`
	Source        string                        `json:"source"`
	Recomputed    bool                          `json:"recomputed"`
	Breakdown     pricing.Breakdown             `json:"breakdown"`
	Inputs        *bookingDomain.SnapshotInputs `json:"inputs,omitempty"`
	Checksum      string                        `json:"checksum,omitempty"`
	Display       *currency.DisplayAmounts      `json:"display,omitempty"`
}

// RenderingService serves stored breakdowns and receipts. It reads the
// pricing snapshot and only recomputes for bookings created before
// snapshotCutoff.
type RenderingService struct {
	service        *BookingService
	snapshotCutoff time.Time
	logger         *zap.Logger
}

// NewRenderingService creates a RenderingService. A zero cutoff disables
// recomputation entirely.
func NewRenderingService(service *BookingService, snapshotCutoff time.Time, logger *zap.Logger) *RenderingService {
	return &RenderingService{service: service, snapshotCutoff: snapshotCutoff, logger: logger}
}

// GetBreakdown returns the pricing of a booking visible to actor, optionally
// with a converted view in displayCurrency.
func (r *RenderingService) GetBreakdown(ctx context.Context, actor Actor, bookingID uuid.UUID, displayCurrency string) (*BreakdownView, error) {
	bk, err := r.service.loadVisible(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	view, err := r.resolve(ctx, bk)
	if err != nil {
		return nil, err
	}
	if displayCurrency != "" {
		display, err := r.service.converter.Display(displayAmounts(view.Breakdown), displayCurrency)
		if err != nil {
			return nil, err
		}
		view.Display = display
	}
	return view, nil
}

// RenderReceipt returns the PDF receipt of a booking visible to actor.
func (r *RenderingService) RenderReceipt(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]byte, string, error) {
	bk, err := r.service.loadVisible(ctx, actor, bookingID)
	if err != nil {
		return nil, "", err
	}
	view, err := r.resolve(ctx, bk)
	if err != nil {
		return nil, "", err
	}

	var title string
	if v, err := r.service.vehicles.FindByID(ctx, bk.VehicleID()); err == nil {
		title = v.Title()
	}

	pdf, err := receipt.Render(receipt.Data{
		BookingNumber: bk.BookingNumber(),
		VehicleTitle:  title,
		RenterEmail:   bk.RenterEmail(),
		Status:        string(bk.Status()),
		PaymentMethod: string(bk.PaymentMethod()),
		Interval:      bk.Interval(),
		Breakdown:     view.Breakdown,
		Recomputed:    view.Recomputed,
		IssuedAt:      r.service.now(),
	})
	if err != nil {
		return nil, "", err
	}
	return pdf, "receipt-" + bk.BookingNumber() + ".pdf", nil
}

func (r *RenderingService) resolve(ctx context.Context, bk *bookingDomain.Booking) (*BreakdownView, error) {
	view := &BreakdownView{BookingID: bk.ID(), BookingNumber: bk.BookingNumber()}

	snap, err := r.service.snapshots.FindByBookingID(ctx, bk.ID())
	switch {
	case err == nil:
		view.Source = SourceSnapshot
		view.Breakdown = snap.Breakdown
		view.Inputs = &snap.Inputs
		view.Checksum = snap.Checksum
		return view, nil
	case domain.IsKind(err, domain.KindNotFound):
	default:
		if domain.IsKind(err, domain.KindTransient) {
			return nil, err
		}
		r.logger.Error("pricing snapshot unreadable, falling back to booking record",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		view.Source = SourceRecord
		view.Breakdown = bk.Pricing()
		return view, nil
	}

	if !r.snapshotCutoff.IsZero() && bk.CreatedAt().Before(r.snapshotCutoff) {
		b, err := r.recompute(ctx, bk)
		if err == nil {
			view.Source = SourceRecomputed
			view.Recomputed = true
			view.Breakdown = b
			return view, nil
		}
		r.logger.Warn("recomputation failed, using booking record",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}

	view.Source = SourceRecord
	view.Breakdown = bk.Pricing()
	return view, nil
}

func (r *RenderingService) recompute(ctx context.Context, bk *bookingDomain.Booking) (pricing.Breakdown, error) {
	v, err := r.service.vehicles.FindByID(ctx, bk.VehicleID())
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return r.service.price(bk.Interval(), v.Policy(), bk.WithDriver())
}
