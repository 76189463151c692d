package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	vehicleDomain "github.com/Lokato-Mobility/service-booking/internal/domain/vehicle"
	"github.com/Lokato-Mobility/service-booking/internal/notification"
	"github.com/Lokato-Mobility/service-booking/internal/payment"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
	"github.com/Lokato-Mobility/service-booking/internal/platform/kafka"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// --- Booking repository (also the availability oracle) ---

type fakeBookingRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]bookingDomain.Booking
	updateErr error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{rows: map[uuid.UUID]bookingDomain.Booking{}}
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return &bk, nil
}

func (r *fakeBookingRepo) list(match func(*bookingDomain.Booking) bool) []*bookingDomain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.rows {
		bk := bk
		if match(&bk) {
			out = append(out, &bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (r *fakeBookingRepo) FindByRenterID(_ context.Context, renterID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	out := r.list(func(b *bookingDomain.Booking) bool { return b.RenterID() == renterID })
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	out := r.list(func(b *bookingDomain.Booking) bool { return b.OwnerID() == ownerID })
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) FindByStatus(_ context.Context, status bookingDomain.BookingStatus, _ int) ([]*bookingDomain.Booking, error) {
	return r.list(func(b *bookingDomain.Booking) bool { return b.Status() == status }), nil
}

func (r *fakeBookingRepo) FindDueForCompletion(_ context.Context, now time.Time, _ int) ([]*bookingDomain.Booking, error) {
	return r.list(func(b *bookingDomain.Booking) bool { return b.IsDueForCompletion(now) }), nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	out := r.list(func(*bookingDomain.Booking) bool { return true })
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, bk := range r.list(func(*bookingDomain.Booking) bool { return true }) {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) overlaps(vehicleID uuid.UUID, interval pricing.RentalInterval, exclude *uuid.UUID) bool {
	for id, bk := range r.rows {
		if exclude != nil && id == *exclude {
			continue
		}
		if bk.VehicleID() == vehicleID && bk.Status().HoldsSlot() && bk.Interval().Overlaps(interval) {
			return true
		}
	}
	return false
}

func (r *fakeBookingRepo) Create(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlaps(bk.VehicleID(), bk.Interval(), nil) {
		return domain.NewConflictErrorCode(availability.CodeSlotUnavailable, "vehicle is already booked for an overlapping period")
	}
	r.rows[bk.ID()] = *bk
	return nil
}

func (r *fakeBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.rows[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	if stored.Version() != bk.Version()-1 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.rows[bk.ID()] = *bk
	return nil
}

func (r *fakeBookingRepo) CheckAvailability(_ context.Context, q availability.Query) (availability.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlaps(q.VehicleID, q.Interval, q.ExcludeBookingID) {
		return availability.Unavailable, nil
	}
	return availability.Available, nil
}

func (r *fakeBookingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// --- Vehicle repository ---

type fakeVehicleRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*vehicleDomain.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{rows: map[uuid.UUID]*vehicleDomain.Vehicle{}}
}

func (r *fakeVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*vehicleDomain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Vehicle", id.String())
	}
	return v, nil
}

func (r *fakeVehicleRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID) ([]*vehicleDomain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*vehicleDomain.Vehicle
	for _, v := range r.rows {
		if v.IsOwnedBy(ownerID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVehicleRepo) Save(_ context.Context, v *vehicleDomain.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[v.ID()] = v
	return nil
}

func (r *fakeVehicleRepo) Update(ctx context.Context, v *vehicleDomain.Vehicle) error {
	return r.Save(ctx, v)
}

// --- Snapshot store ---

type fakeSnapshotStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]bookingDomain.Snapshot
	saveErr error
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{rows: map[uuid.UUID]bookingDomain.Snapshot{}}
}

func (s *fakeSnapshotStore) Save(_ context.Context, snap bookingDomain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.rows[snap.BookingID]; ok {
		return domain.NewConflictError("snapshot exists")
	}
	s.rows[snap.BookingID] = snap
	return nil
}

func (s *fakeSnapshotStore) FindByBookingID(_ context.Context, id uuid.UUID) (*bookingDomain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("PricingSnapshot", id.String())
	}
	return &snap, nil
}

// --- Mocks ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, bookingID uuid.UUID, amount int64, currency string, metadata map[string]string) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, bookingID, amount, currency, metadata)
	if s, ok := args.Get(0).(*payment.CheckoutSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) GetPaymentStatus(ctx context.Context, bookingID uuid.UUID) (payment.Status, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(payment.Status), args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) CheckAvailability(ctx context.Context, q availability.Query) (availability.Outcome, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(availability.Outcome), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type sentEmail struct {
	Template  notification.Template
	Recipient string
	Data      map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (n *recordingNotifier) Dispatch(template notification.Template, recipient string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{template, recipient, data})
}

func (n *recordingNotifier) templatesFor(recipient string) []notification.Template {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Template
	for _, e := range n.sent {
		if e.Recipient == recipient {
			out = append(out, e.Template)
		}
	}
	return out
}

// --- Harness ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc       *BookingService
	watcher   *PaymentWatcher
	bookings  *fakeBookingRepo
	vehicles  *fakeVehicleRepo
	snapshots *fakeSnapshotStore
	gateway   *mockGateway
	publisher *recordingPublisher
	notifier  *recordingNotifier
	clock     *testClock
	owner     Actor
	renter    Actor
}

type harnessOption func(*BookingServiceDeps)

func withOracle(o availability.Oracle) harnessOption {
	return func(d *BookingServiceDeps) { d.Checker = availability.NewChecker(o) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		bookings:  newFakeBookingRepo(),
		vehicles:  newFakeVehicleRepo(),
		snapshots: newFakeSnapshotStore(),
		gateway:   new(mockGateway),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		clock:     &testClock{now: t0},
		owner:     Actor{UserID: uuid.New(), Email: "owner@example.com"},
		renter:    Actor{UserID: uuid.New(), Email: "renter@example.com"},
	}

	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)

	deps := BookingServiceDeps{
		Bookings:  h.bookings,
		Vehicles:  h.vehicles,
		Snapshots: h.snapshots,
		Engine:    engine,
		Checker:   availability.NewChecker(h.bookings),
		Decider:   bookingDomain.NewAdmissionDecider(bookingDomain.DefaultPaymentTimeout),
		Payments:  h.gateway,
		Publisher: h.publisher,
		Notifier:  h.notifier,
		Clock:     h.clock.Now,
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.svc = NewBookingService(deps)
	h.watcher = NewPaymentWatcher(h.svc, h.gateway, 50, zap.NewNop())
	return h
}

func (h *harness) addVehicle(t *testing.T, mutate func(*pricing.PolicyTerms)) *vehicleDomain.Vehicle {
	t.Helper()
	terms := pricing.PolicyTerms{
		DailyRate:       20000,
		MinRentalDays:   1,
		SecurityDeposit: 50000,
	}
	if mutate != nil {
		mutate(&terms)
	}
	policy, err := pricing.NewVehicleRentalPolicy(terms)
	require.NoError(t, err)
	v, err := vehicleDomain.NewVehicle(h.owner.UserID, h.owner.Email, "Toyota Corolla", "DK-1234-AB", policy)
	require.NoError(t, err)
	require.NoError(t, h.vehicles.Save(context.Background(), v))
	return v
}

func (h *harness) submitRequest(v *vehicleDomain.Vehicle, days int, method string) SubmitBookingRequest {
	start := t0.Add(48 * time.Hour)
	return SubmitBookingRequest{
		VehicleID:     v.ID(),
		StartAt:       start,
		EndAt:         start.Add(time.Duration(days) * 24 * time.Hour),
		PaymentMethod: method,
		LicenseNumber: "SN-123456",
	}
}

func (h *harness) expectCheckout(url string) {
	h.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything, "XOF", mock.Anything).
		Return(&payment.CheckoutSession{SessionID: "cs_1", URL: url}, nil)
}
