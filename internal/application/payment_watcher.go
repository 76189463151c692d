package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/payment"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// PaymentStatusDTO is returned to clients polling a card booking.
type PaymentStatusDTO struct {
	BookingID        uuid.UUID  `json:"booking_id"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"payment_status"`
	PaymentExpiresAt *time.Time `json:"payment_expires_at,omitempty"`
	SecondsRemaining int64      `json:"seconds_remaining"`
}

// PaymentWatcher settles pending_payment bookings: confirm when paid, cancel
// once the deadline has passed and a second check still finds no payment.
// Client polling and the periodic sweep share the same routine.
type PaymentWatcher struct {
	service   *BookingService
	gateway   payment.Gateway
	batchSize int
	logger    *zap.Logger
}

// NewPaymentWatcher creates a PaymentWatcher.
func NewPaymentWatcher(service *BookingService, gateway payment.Gateway, batchSize int, logger *zap.Logger) *PaymentWatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PaymentWatcher{service: service, gateway: gateway, batchSize: batchSize, logger: logger}
}

// CheckPayment reconciles one booking on behalf of a polling participant.
func (w *PaymentWatcher) CheckPayment(ctx context.Context, actor Actor, bookingID uuid.UUID) (*PaymentStatusDTO, error) {
	bk, err := w.service.loadVisible(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	paymentStatus, err := w.reconcile(ctx, bk)
	if err != nil {
		return nil, err
	}

	dto := &PaymentStatusDTO{
		BookingID:        bk.ID(),
		Status:           string(bk.Status()),
		PaymentStatus:    string(paymentStatus),
		PaymentExpiresAt: bk.PaymentExpiresAt(),
	}
	if due := bk.PaymentExpiresAt(); due != nil && bk.Status() == bookingDomain.StatusPendingPayment {
		if remaining := due.Sub(w.service.now()); remaining > 0 {
			dto.SecondsRemaining = int64(remaining.Seconds())
		}
	}
	return dto, nil
}

// Sweep reconciles every pending_payment booking, oldest first.
func (w *PaymentWatcher) Sweep(ctx context.Context) error {
	pending, err := w.service.bookings.FindByStatus(ctx, bookingDomain.StatusPendingPayment, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load pending payments: %w", err)
	}

	var failed int
	for _, bk := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.reconcile(ctx, bk); err != nil {
			failed++
			w.logger.Warn("failed to reconcile payment",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pending payments could not be reconciled", failed, len(pending))
	}
	return nil
}

// reconcile applies the payment rules to bk and returns the last payment
// status seen. A gateway error never cancels a booking.
func (w *PaymentWatcher) reconcile(ctx context.Context, bk *bookingDomain.Booking) (payment.Status, error) {
	if bk.Status() != bookingDomain.StatusPendingPayment {
		return payment.StatusUnknown, nil
	}

	status, err := w.gateway.GetPaymentStatus(ctx, bk.ID())
	if err == nil && status == payment.StatusPaid {
		return status, w.confirm(ctx, bk)
	}
	if err != nil {
		w.logger.Warn("payment status check failed",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}
	if !bk.IsPaymentExpired(w.service.now()) {
		return status, nil
	}

	// Deadline passed: verify once more right before cancelling.
	status, err = w.gateway.GetPaymentStatus(ctx, bk.ID())
	if err != nil {
		w.logger.Warn("payment re-verification failed, leaving booking pending",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		return payment.StatusUnknown, nil
	}
	if status == payment.StatusPaid {
		return status, w.confirm(ctx, bk)
	}

	from := bk.Status()
	if err := bk.Cancel(bookingDomain.ReasonPaymentTimeout, bookingDomain.CancelledBySystem, w.service.now()); err != nil {
		return status, err
	}
	if err := w.service.commitTransition(ctx, bk, from); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			// Someone else moved the booking first, most likely a payment.
			return status, w.reload(ctx, bk)
		}
		return status, err
	}
	w.service.metrics.PaymentTimedOut()
	w.logger.Info("booking cancelled after payment timeout",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
	)
	return status, nil
}

func (w *PaymentWatcher) confirm(ctx context.Context, bk *bookingDomain.Booking) error {
	err := w.service.confirmPayment(ctx, bk)
	if domain.IsKind(err, domain.KindConflict) {
		return w.reload(ctx, bk)
	}
	return err
}

func (w *PaymentWatcher) reload(ctx context.Context, bk *bookingDomain.Booking) error {
	fresh, err := w.service.bookings.FindByID(ctx, bk.ID())
	if err != nil {
		return err
	}
	*bk = *fresh
	return nil
}
