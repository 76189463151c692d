package application

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

func submitCash(t *testing.T, h *harness, days int) uuid.UUID {
	t.Helper()
	v := h.addVehicle(t, nil)
	res, err := h.svc.SubmitBooking(context.Background(), h.renter, h.submitRequest(v, days, "cash"))
	require.NoError(t, err)
	return res.Booking.ID
}

func TestGetBreakdown_ReadsSnapshot(t *testing.T) {
	h := newHarness(t)
	id := submitCash(t, h, 3)
	r := NewRenderingService(h.svc, t0.Add(time.Hour), zap.NewNop())

	view, err := r.GetBreakdown(context.Background(), h.renter, id, "")
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, view.Source)
	assert.False(t, view.Recomputed)
	assert.Equal(t, int64(67080), view.Breakdown.TotalPrice)
	require.NotNil(t, view.Inputs)
	assert.Len(t, view.Checksum, 64)
	assert.Nil(t, view.Display)
}

func TestGetBreakdown_LegacyBookingRecomputedFromLivePolicy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.snapshots.saveErr = errors.New("snapshots table missing")
	id := submitCash(t, h, 3)

	bk, err := h.bookings.FindByID(ctx, id)
	require.NoError(t, err)
	v, err := h.vehicles.FindByID(ctx, bk.VehicleID())
	require.NoError(t, err)
	terms := v.Policy().Terms()
	terms.DailyRate = 30000
	policy, err := pricing.NewVehicleRentalPolicy(terms)
	require.NoError(t, err)
	require.NoError(t, v.UpdatePolicy(policy))

	r := NewRenderingService(h.svc, t0.Add(time.Hour), zap.NewNop())
	view, err := r.GetBreakdown(ctx, h.owner, id, "EUR")
	require.NoError(t, err)
	assert.Equal(t, SourceRecomputed, view.Source)
	assert.True(t, view.Recomputed)
	assert.Equal(t, int64(90000), view.Breakdown.BasePrice)
	require.NotNil(t, view.Display)
	assert.Equal(t, "EUR", view.Display.Currency)
}

func TestGetBreakdown_NoSnapshotAfterCutoffUsesRecord(t *testing.T) {
	tests := []struct {
		name   string
		cutoff time.Time
	}{
		{"cutoff in the past", t0.Add(-time.Hour)},
		{"recompute disabled", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.snapshots.saveErr = errors.New("write failed")
			id := submitCash(t, h, 3)

			r := NewRenderingService(h.svc, tt.cutoff, zap.NewNop())
			view, err := r.GetBreakdown(context.Background(), h.renter, id, "")
			require.NoError(t, err)
			assert.Equal(t, SourceRecord, view.Source)
			assert.Equal(t, int64(67080), view.Breakdown.TotalPrice)
		})
	}
}

func TestGetBreakdown_RejectsStrangersAndBadCurrency(t *testing.T) {
	h := newHarness(t)
	id := submitCash(t, h, 2)
	r := NewRenderingService(h.svc, time.Time{}, zap.NewNop())

	_, err := r.GetBreakdown(context.Background(), Actor{UserID: uuid.New()}, id, "")
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = r.GetBreakdown(context.Background(), h.renter, id, "JPY")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestRenderReceipt(t *testing.T) {
	h := newHarness(t)
	id := submitCash(t, h, 2)
	r := NewRenderingService(h.svc, time.Time{}, zap.NewNop())

	pdf, filename, err := r.RenderReceipt(context.Background(), h.renter, id)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Regexp(t, `^receipt-[A-Z0-9]+\.pdf$`, filename)
}
