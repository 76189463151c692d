package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
	"github.com/Lokato-Mobility/service-booking/internal/platform/kafka"
)

// PaymentConfirmer is the part of the booking service the consumer drives.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
}

// PaymentEventConsumer listens to payment events and confirms paid bookings.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  PaymentConfirmer
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service PaymentConfirmer,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, bookingDomain.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case bookingDomain.EventPaymentSucceeded:
		return c.handlePaymentSucceeded(ctx, cloudEvent)
	case bookingDomain.EventPaymentFailed:
		return c.handlePaymentFailed(cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentSucceeded(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt bookingDomain.PaymentEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.BookingID == uuid.Nil {
		c.logger.Error("failed to parse payment.succeeded data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment succeeded event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("payment_id", evt.PaymentID),
	)

	_, err := c.service.ConfirmPayment(ctx, evt.BookingID)
	switch {
	case err == nil:
		c.logger.Info("booking confirmed after payment",
			zap.String("booking_id", evt.BookingID.String()),
		)
		return nil
	case domain.IsKind(err, domain.KindInvalidState), domain.IsKind(err, domain.KindNotFound):
		// Redelivery cannot change the outcome.
		c.logger.Warn("payment event not applicable to booking",
			zap.String("booking_id", evt.BookingID.String()),
			zap.String("payment_id", evt.PaymentID),
			zap.Error(err),
		)
		return nil
	default:
		c.logger.Error("failed to confirm booking after payment",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
}

// handlePaymentFailed only records the failure: the booking stays
// pending_payment so the renter can retry until the deadline.
func (c *PaymentEventConsumer) handlePaymentFailed(cloudEvent kafka.CloudEvent) error {
	var evt bookingDomain.PaymentEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse payment.failed data", zap.Error(err))
		return nil
	}
	c.logger.Info("payment failed for booking",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("payment_id", evt.PaymentID),
		zap.String("reason", evt.Reason),
	)
	return nil
}
