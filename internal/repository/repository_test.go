package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	vehicleDomain "github.com/Lokato-Mobility/service-booking/internal/domain/vehicle"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func testPolicy(t *testing.T) pricing.VehicleRentalPolicy {
	t.Helper()
	p, err := pricing.NewVehicleRentalPolicy(pricing.PolicyTerms{
		DailyRate:       20000,
		MinRentalDays:   1,
		SecurityDeposit: 50000,
	})
	require.NoError(t, err)
	return p
}

func newTestBooking(t *testing.T, vehicleID uuid.UUID, start time.Time, days int, method bookingDomain.PaymentMethod) *bookingDomain.Booking {
	t.Helper()
	interval, err := pricing.NewRentalInterval(start, start.Add(time.Duration(days)*24*time.Hour))
	require.NoError(t, err)

	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)
	policy := testPolicy(t)
	breakdown, err := engine.Quote(pricing.Request{Interval: interval, Policy: policy})
	require.NoError(t, err)

	bk, err := bookingDomain.NewAdmissionDecider(0).Admit(bookingDomain.AdmissionRequest{
		VehicleID:     vehicleID,
		OwnerID:       uuid.New(),
		OwnerEmail:    "owner@example.com",
		RenterID:      uuid.New(),
		RenterEmail:   "renter@example.com",
		Interval:      interval,
		Pricing:       breakdown,
		Policy:        policy,
		PaymentMethod: method,
		LicenseNumber: "SN-123456",
	}, t0)
	require.NoError(t, err)
	return bk
}

// --- Booking repository ---

func TestBookingRepository_CreateAndFind(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()

	bk := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 3, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, bk))

	got, err := repo.FindByID(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bk.BookingNumber(), got.BookingNumber())
	assert.Equal(t, bookingDomain.StatusPendingPayment, got.Status())
	assert.Equal(t, bk.Pricing(), got.Pricing())
	assert.True(t, bk.Interval().Start.Equal(got.Interval().Start))
	assert.True(t, bk.Interval().End.Equal(got.Interval().End))
	require.NotNil(t, got.PaymentExpiresAt())
	assert.True(t, bk.PaymentExpiresAt().Equal(*got.PaymentExpiresAt()))
	assert.NoError(t, got.Pricing().Verify())
}

func TestBookingRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestBookingRepository_CreateRejectsOverlap(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()
	vehicleID := uuid.New()

	first := newTestBooking(t, vehicleID, t0.Add(24*time.Hour), 3, bookingDomain.PaymentCash)
	require.NoError(t, repo.Create(ctx, first))

	overlapping := newTestBooking(t, vehicleID, t0.Add(48*time.Hour), 3, bookingDomain.PaymentCash)
	err := repo.Create(ctx, overlapping)
	require.Error(t, err)
	assert.ErrorIs(t, err, availability.ErrSlotUnavailable)

	_, err = repo.FindByID(ctx, overlapping.ID())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestBookingRepository_CreateAllowsAdjacentAndOtherVehicles(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()
	vehicleID := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestBooking(t, vehicleID, t0.Add(24*time.Hour), 2, bookingDomain.PaymentCash)))
	// Starts exactly when the first one ends.
	require.NoError(t, repo.Create(ctx, newTestBooking(t, vehicleID, t0.Add(72*time.Hour), 2, bookingDomain.PaymentCash)))
	require.NoError(t, repo.Create(ctx, newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 2, bookingDomain.PaymentCash)))
}

func TestBookingRepository_CancelledBookingReleasesSlot(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()
	vehicleID := uuid.New()

	first := newTestBooking(t, vehicleID, t0.Add(24*time.Hour), 3, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, first))

	require.NoError(t, first.Cancel(bookingDomain.ReasonPaymentTimeout, bookingDomain.CancelledBySystem, t0.Add(11*time.Minute)))
	first.IncrementVersion()
	require.NoError(t, repo.Update(ctx, first))

	second := newTestBooking(t, vehicleID, t0.Add(24*time.Hour), 3, bookingDomain.PaymentCard)
	assert.NoError(t, repo.Create(ctx, second))
}

func TestBookingRepository_ConcurrentCreateAdmitsOne(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()
	vehicleID := uuid.New()

	const attempts = 8
	bookings := make([]*bookingDomain.Booking, attempts)
	for i := range bookings {
		bookings[i] = newTestBooking(t, vehicleID, t0.Add(24*time.Hour+time.Duration(i)*time.Hour), 2, bookingDomain.PaymentCash)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range bookings {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, bookings[i])
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, availability.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, succeeded)
}

func TestBookingRepository_UpdateOptimisticLock(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()

	bk := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 2, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, bk))

	stale, err := repo.FindByID(ctx, bk.ID())
	require.NoError(t, err)

	require.NoError(t, bk.ConfirmPayment(t0.Add(time.Minute)))
	bk.IncrementVersion()
	require.NoError(t, repo.Update(ctx, bk))

	require.NoError(t, stale.Cancel(bookingDomain.ReasonPaymentTimeout, bookingDomain.CancelledBySystem, t0.Add(11*time.Minute)))
	stale.IncrementVersion()
	err = repo.Update(ctx, stale)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	got, err := repo.FindByID(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusConfirmed, got.Status())
	assert.Equal(t, int64(2), got.Version())
}

func TestBookingRepository_FindByStatusAndDueForCompletion(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()

	pending := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 2, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, pending))

	ended := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 2, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, ended))
	require.NoError(t, ended.ConfirmPayment(t0.Add(time.Minute)))
	ended.IncrementVersion()
	require.NoError(t, repo.Update(ctx, ended))

	running := newTestBooking(t, uuid.New(), t0.Add(48*time.Hour), 5, bookingDomain.PaymentCard)
	require.NoError(t, repo.Create(ctx, running))
	require.NoError(t, running.ConfirmPayment(t0.Add(time.Minute)))
	running.IncrementVersion()
	require.NoError(t, repo.Update(ctx, running))

	pendingList, err := repo.FindByStatus(ctx, bookingDomain.StatusPendingPayment, 10)
	require.NoError(t, err)
	require.Len(t, pendingList, 1)
	assert.Equal(t, pending.ID(), pendingList[0].ID())

	due, err := repo.FindDueForCompletion(ctx, t0.Add(72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ended.ID(), due[0].ID())
}

func TestBookingRepository_PaginationAndCounts(t *testing.T) {
	repo := NewGormBookingRepository(setupDB(t))
	ctx := context.Background()

	var renterID uuid.UUID
	for i := 0; i < 5; i++ {
		bk := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 1, bookingDomain.PaymentCard)
		if i == 0 {
			renterID = bk.RenterID()
		}
		require.NoError(t, repo.Create(ctx, bk))
	}

	page, total, err := repo.ListAll(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	mine, total, err := repo.FindByRenterID(ctx, renterID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[string(bookingDomain.StatusPendingPayment)])
}

// --- Snapshot repository ---

func TestSnapshotRepository_SaveIsInsertOnly(t *testing.T) {
	db := setupDB(t)
	bookings := NewGormBookingRepository(db)
	snapshots := NewGormSnapshotRepository(db)
	ctx := context.Background()

	bk := newTestBooking(t, uuid.New(), t0.Add(24*time.Hour), 3, bookingDomain.PaymentCash)
	require.NoError(t, bookings.Create(ctx, bk))

	inputs := bookingDomain.SnapshotInputs{
		Interval:        bk.Interval(),
		Policy:          testPolicy(t).Terms(),
		RemainderPolicy: pricing.RemainderAbsorb,
		Category:        pricing.CategoryVehicle,
		VATRate:         pricing.DefaultVATRate.String(),
		Currency:        domain.CurrencyXOF,
	}
	snap, err := bookingDomain.NewSnapshot(bk.ID(), bk.Pricing(), inputs, t0)
	require.NoError(t, err)
	require.NoError(t, snapshots.Save(ctx, snap))

	tampered := snap
	tampered.Breakdown.TotalPrice = 1
	err = snapshots.Save(ctx, tampered)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	got, err := snapshots.FindByBookingID(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, snap.Checksum, got.Checksum)
	assert.Equal(t, snap.Breakdown, got.Breakdown)
	assert.Equal(t, snap.Inputs, got.Inputs)
}

func TestSnapshotRepository_NotFound(t *testing.T) {
	snapshots := NewGormSnapshotRepository(setupDB(t))

	_, err := snapshots.FindByBookingID(context.Background(), uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

// --- Vehicle repository ---

func TestVehicleRepository_SaveFindUpdate(t *testing.T) {
	repo := NewGormVehicleRepository(setupDB(t))
	ctx := context.Background()

	v, err := vehicleDomain.NewVehicle(uuid.New(), "owner@example.com", "Toyota Corolla", "dk-1234-ab", testPolicy(t))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, v))

	got, err := repo.FindByID(ctx, v.ID())
	require.NoError(t, err)
	assert.Equal(t, "DK-1234-AB", got.Plate())
	assert.Equal(t, int64(20000), got.Policy().DailyRate())
	assert.True(t, got.Policy().IsValid())

	hourly := int64(2500)
	updated, err := pricing.NewVehicleRentalPolicy(pricing.PolicyTerms{
		DailyRate:            25000,
		HourlyRate:           &hourly,
		HourlyBillingEnabled: true,
		MinRentalDays:        1,
		AutoBooking:          true,
	})
	require.NoError(t, err)
	require.NoError(t, got.UpdatePolicy(updated))
	require.NoError(t, repo.Update(ctx, got))

	// v still carries version 1 and must lose.
	require.NoError(t, v.UpdatePolicy(updated))
	err = repo.Update(ctx, v)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	owned, err := repo.FindByOwnerID(ctx, v.OwnerID())
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.True(t, owned[0].Policy().AutoBooking())
	assert.Equal(t, int64(25000), owned[0].Policy().DailyRate())
}

// --- Availability oracle ---

func TestAvailabilityOracle_Overlap(t *testing.T) {
	db := setupDB(t)
	repo := NewGormBookingRepository(db)
	oracle := NewGormAvailabilityOracle(db)
	ctx := context.Background()
	vehicleID := uuid.New()

	held := newTestBooking(t, vehicleID, t0.Add(24*time.Hour), 3, bookingDomain.PaymentCash)
	require.NoError(t, repo.Create(ctx, held))

	span := func(fromH, toH int) pricing.RentalInterval {
		return pricing.RentalInterval{Start: t0.Add(time.Duration(fromH) * time.Hour), End: t0.Add(time.Duration(toH) * time.Hour)}
	}

	tests := []struct {
		name     string
		interval pricing.RentalInterval
		exclude  *uuid.UUID
		want     availability.Outcome
	}{
		{"inside", span(30, 40), nil, availability.Unavailable},
		{"straddles start", span(10, 30), nil, availability.Unavailable},
		{"ends at start", span(0, 24), nil, availability.Available},
		{"starts at end", span(96, 120), nil, availability.Available},
		{"excluding itself", span(30, 40), ptr(held.ID()), availability.Available},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.CheckAvailability(ctx, availability.Query{VehicleID: vehicleID, Interval: tt.interval, ExcludeBookingID: tt.exclude})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAvailabilityOracle_DatabaseErrorIsIndeterminate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "bookings"`)).
		WillReturnError(fmt.Errorf("connection reset by peer"))

	oracle := NewGormAvailabilityOracle(db)
	q := availability.Query{VehicleID: uuid.New(), Interval: pricing.RentalInterval{Start: t0, End: t0.Add(time.Hour)}}

	outcome, err := oracle.CheckAvailability(context.Background(), q)
	assert.Error(t, err)
	assert.Equal(t, availability.Indeterminate, outcome)

	res := availability.NewChecker(oracle).Check(context.Background(), q)
	assert.False(t, res.IsAvailable())
	assert.Equal(t, availability.Indeterminate, res.Outcome)
}

func ptr[T any](v T) *T { return &v }
