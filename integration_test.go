//go:build integration

package main_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lokato-Mobility/service-booking/internal/application"
	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/repository"
)

func renter() application.Actor {
	return application.Actor{UserID: uuid.New(), Email: "renter@example.com"}
}

// TestIntegration_PaymentSucceeded_ConfirmsBooking verifies the full flow:
// card booking submitted -> payment.succeeded consumed -> booking confirmed
// -> booking.confirmed published.
func TestIntegration_PaymentSucceeded_ConfirmsBooking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupPostgres(t)
	brokers := setupKafka(t)
	stack := setupBookingStack(t, db, brokers)
	defer stack.CleanupProducer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	defer func() { _ = stack.Consumer.Close() }()

	vehicle := seedVehicle(t, stack.Vehicles, uuid.New())
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	result, err := stack.Service.SubmitBooking(ctx, renter(), application.SubmitBookingRequest{
		VehicleID:     vehicle.ID(),
		StartAt:       start,
		EndAt:         start.Add(72 * time.Hour),
		PaymentMethod: "card",
		LicenseNumber: "SN-123456",
	})
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusPendingPayment), result.Booking.Status)
	assert.Equal(t, int64(67080), result.Booking.TotalPrice)
	assert.NotEmpty(t, result.CheckoutURL)

	publishTestEvent(t, brokers, bookingDomain.TopicPaymentEvents, "service-payment", bookingDomain.EventPaymentSucceeded,
		bookingDomain.PaymentEvent{
			PaymentID:  "pay_" + uuid.NewString()[:8],
			BookingID:  result.Booking.ID,
			Amount:     result.Booking.TotalPrice,
			Currency:   "XOF",
			OccurredAt: time.Now().UTC(),
		})

	model := waitForBookingStatus(t, db, result.Booking.ID, string(bookingDomain.StatusConfirmed), 30*time.Second)
	assert.NotNil(t, model.ConfirmedAt)
	assert.Equal(t, int64(2), model.Version)

	ce := consumeOneEvent(t, brokers, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingConfirmed, 30*time.Second)
	var evt map[string]interface{}
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, result.Booking.ID.String(), evt["booking_id"])

	var snapshots int64
	require.NoError(t, db.Model(&repository.SnapshotModel{}).
		Where("booking_id = ?", result.Booking.ID).Count(&snapshots).Error)
	assert.Equal(t, int64(1), snapshots)
}

// TestIntegration_ConcurrentSubmissions_AdmitExactlyOne races overlapping
// requests for the same vehicle and expects a single winner.
func TestIntegration_ConcurrentSubmissions_AdmitExactlyOne(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupPostgres(t)
	stack := setupBookingStack(t, db, nil)
	vehicle := seedVehicle(t, stack.Vehicles, uuid.New())
	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Hour)

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		admitted   int
		rejected   int
		unexpected []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Offsets keep every request overlapping the first.
			offset := time.Duration(i) * time.Hour
			_, err := stack.Service.SubmitBooking(context.Background(), renter(), application.SubmitBookingRequest{
				VehicleID:     vehicle.ID(),
				StartAt:       start.Add(offset),
				EndAt:         start.Add(48*time.Hour + offset),
				PaymentMethod: "cash",
				LicenseNumber: "SN-123456",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, availability.ErrSlotUnavailable):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unexpected)
	assert.Equal(t, 1, admitted)
	assert.Equal(t, attempts-1, rejected)

	var live int64
	require.NoError(t, db.Model(&repository.BookingModel{}).
		Where("vehicle_id = ? AND status <> ?", vehicle.ID(), string(bookingDomain.StatusCancelled)).
		Count(&live).Error)
	assert.Equal(t, int64(1), live)
}

// TestIntegration_CancelledBookingFreesSlot checks the exclusion constraint
// ignores cancelled rows.
func TestIntegration_CancelledBookingFreesSlot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupPostgres(t)
	stack := setupBookingStack(t, db, nil)
	vehicle := seedVehicle(t, stack.Vehicles, uuid.New())
	start := time.Now().UTC().Add(120 * time.Hour).Truncate(time.Hour)
	first := renter()

	req := application.SubmitBookingRequest{
		VehicleID:     vehicle.ID(),
		StartAt:       start,
		EndAt:         start.Add(24 * time.Hour),
		PaymentMethod: "cash",
		LicenseNumber: "SN-123456",
	}
	result, err := stack.Service.SubmitBooking(context.Background(), first, req)
	require.NoError(t, err)

	_, err = stack.Service.SubmitBooking(context.Background(), renter(), req)
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)

	_, err = stack.Service.CancelBooking(context.Background(), first, result.Booking.ID, "plans changed")
	require.NoError(t, err)

	_, err = stack.Service.SubmitBooking(context.Background(), renter(), req)
	require.NoError(t, err)
}
