package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/currency"
	"github.com/Lokato-Mobility/service-booking/internal/domain/availability"
	bookingDomain "github.com/Lokato-Mobility/service-booking/internal/domain/booking"
	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	vehicleDomain "github.com/Lokato-Mobility/service-booking/internal/domain/vehicle"
	"github.com/Lokato-Mobility/service-booking/internal/notification"
	"github.com/Lokato-Mobility/service-booking/internal/payment"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
	"github.com/Lokato-Mobility/service-booking/internal/platform/kafka"
)

const eventSource = "service-booking"

// EventPublisher publishes CloudEvents. *kafka.Producer implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// Notifier queues an email without waiting for it.
type Notifier interface {
	Dispatch(template notification.Template, recipient string, data map[string]string)
}

// Recorder receives the booking flow's metrics. *metrics.Metrics implements it.
type Recorder interface {
	BookingAdmitted(status string)
	AvailabilityChecked(outcome string)
	PaymentTimedOut()
	PostCommitFailed(step string)
	ObservePricing(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) BookingAdmitted(string)       {}
func (nopRecorder) AvailabilityChecked(string)   {}
func (nopRecorder) PaymentTimedOut()             {}
func (nopRecorder) PostCommitFailed(string)      {}
func (nopRecorder) ObservePricing(time.Duration) {}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notification.Template, string, map[string]string) {}

// Actor is the authenticated caller of a use case.
type Actor struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}

// QuoteRequest asks for a price without booking.
type QuoteRequest struct {
	VehicleID       uuid.UUID `json:"vehicle_id" binding:"required"`
	StartAt         time.Time `json:"start_at" binding:"required"`
	EndAt           time.Time `json:"end_at" binding:"required"`
	WithDriver      bool      `json:"with_driver"`
	DisplayCurrency string    `json:"display_currency"`
}

// QuoteDTO is a priced interval.
type QuoteDTO struct {
	VehicleID uuid.UUID                `json:"vehicle_id"`
	StartAt   time.Time                `json:"start_at"`
	EndAt     time.Time                `json:"end_at"`
	Breakdown pricing.Breakdown        `json:"breakdown"`
	Display   *currency.DisplayAmounts `json:"display,omitempty"`
}

// SubmitBookingRequest holds the data needed to book a vehicle.
type SubmitBookingRequest struct {
	VehicleID       uuid.UUID `json:"vehicle_id" binding:"required"`
	StartAt         time.Time `json:"start_at" binding:"required"`
	EndAt           time.Time `json:"end_at" binding:"required"`
	PaymentMethod   string    `json:"payment_method" binding:"required"`
	WithDriver      bool      `json:"with_driver"`
	LicenseNumber   string    `json:"license_number"`
	DisplayCurrency string    `json:"display_currency"`
}

// SubmitBookingResult is returned once the booking is committed. CheckoutURL
// is empty for cash bookings or when the checkout session could not be created.
type SubmitBookingResult struct {
	Booking     BookingDTO `json:"booking"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID         `json:"id"`
	BookingNumber      string            `json:"booking_number"`
	VehicleID          uuid.UUID         `json:"vehicle_id"`
	OwnerID            uuid.UUID         `json:"owner_id"`
	RenterID           uuid.UUID         `json:"renter_id"`
	Status             string            `json:"status"`
	StartAt            time.Time         `json:"start_at"`
	EndAt              time.Time         `json:"end_at"`
	RentalType         string            `json:"rental_type"`
	PaymentMethod      string            `json:"payment_method"`
	WithDriver         bool              `json:"with_driver"`
	LicenseNumber      string            `json:"license_number,omitempty"`
	Pricing            pricing.Breakdown `json:"pricing"`
	PaymentExpiresAt   *time.Time        `json:"payment_expires_at,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancelledBy        string            `json:"cancelled_by,omitempty"`
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// BookingServiceDeps groups the collaborators of BookingService.
type BookingServiceDeps struct {
	Bookings  bookingDomain.BookingRepository
	Vehicles  vehicleDomain.VehicleRepository
	Snapshots bookingDomain.SnapshotStore
	Engine    *pricing.Engine
	Checker   *availability.Checker
	Decider   *bookingDomain.AdmissionDecider
	Payments  payment.Gateway
	Converter *currency.Converter
	Publisher EventPublisher
	Notifier  Notifier
	Metrics   Recorder
	Clock     func() time.Time
	Logger    *zap.Logger
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	bookings  bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	snapshots bookingDomain.SnapshotStore
	engine    *pricing.Engine
	checker   *availability.Checker
	decider   *bookingDomain.AdmissionDecider
	payments  payment.Gateway
	converter *currency.Converter
	publisher EventPublisher
	notifier  Notifier
	metrics   Recorder
	now       func() time.Time
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(d BookingServiceDeps) *BookingService {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Converter == nil {
		d.Converter = currency.NewConverter(decimal.Zero)
	}
	return &BookingService{
		bookings:  d.Bookings,
		vehicles:  d.Vehicles,
		snapshots: d.Snapshots,
		engine:    d.Engine,
		checker:   d.Checker,
		decider:   d.Decider,
		payments:  d.Payments,
		converter: d.Converter,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		now:       func() time.Time { return clock().UTC() },
		logger:    d.Logger,
	}
}

// Quote prices an interval for a vehicle. Nothing is persisted.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (*QuoteDTO, error) {
	interval, err := pricing.NewRentalInterval(req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}
	v, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.price(interval, v.Policy(), req.WithDriver)
	if err != nil {
		return nil, err
	}

	result := &QuoteDTO{
		VehicleID: v.ID(),
		StartAt:   interval.Start,
		EndAt:     interval.End,
		Breakdown: breakdown,
	}
	if req.DisplayCurrency != "" {
		display, err := s.converter.Display(displayAmounts(breakdown), req.DisplayCurrency)
		if err != nil {
			return nil, err
		}
		result.Display = display
	}
	return result, nil
}

// SubmitBooking validates, prices, checks availability, admits and commits a
// booking. Steps after the commit never undo it: their failures are logged.
func (s *BookingService) SubmitBooking(ctx context.Context, renter Actor, req SubmitBookingRequest) (*SubmitBookingResult, error) {
	// 1. Request validation.
	interval, err := pricing.NewRentalInterval(req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}
	method, err := bookingDomain.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	if err != nil {
		return nil, domain.NewValidationErrorCode("INVALID_PAYMENT_METHOD", err.Error())
	}
	if !req.WithDriver && strings.TrimSpace(req.LicenseNumber) == "" {
		return nil, domain.NewValidationErrorCode("LICENSE_REQUIRED", "a driving licence number is required when renting without a driver")
	}
	var displayRate string
	if req.DisplayCurrency != "" {
		rate, err := s.converter.Rate(req.DisplayCurrency)
		if err != nil {
			return nil, err
		}
		displayRate = rate.String()
	}

	// 2. Vehicle.
	v, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !v.IsActive() {
		return nil, domain.NewValidationErrorCode("VEHICLE_INACTIVE", "this vehicle is not accepting bookings")
	}
	if v.IsOwnedBy(renter.UserID) {
		return nil, domain.NewValidationError("owners cannot book their own vehicle")
	}

	// 3. Pricing.
	breakdown, err := s.price(interval, v.Policy(), req.WithDriver)
	if err != nil {
		return nil, err
	}

	// 4. Availability, fail-closed.
	res, err := s.checker.Require(ctx, availability.Query{VehicleID: v.ID(), Interval: interval})
	s.metrics.AvailabilityChecked(string(res.Outcome))
	if err != nil {
		if res.Outcome == availability.Indeterminate {
			s.logger.Warn("availability indeterminate, refusing booking",
				zap.String("vehicle_id", v.ID().String()),
				zap.String("reason", res.Reason),
			)
		}
		return nil, err
	}

	// 5. Admission.
	now := s.now()
	bk, err := s.decider.Admit(bookingDomain.AdmissionRequest{
		VehicleID:     v.ID(),
		OwnerID:       v.OwnerID(),
		OwnerEmail:    v.OwnerEmail(),
		RenterID:      renter.UserID,
		RenterEmail:   renter.Email,
		Interval:      interval,
		Pricing:       breakdown,
		Policy:        v.Policy(),
		PaymentMethod: method,
		WithDriver:    req.WithDriver,
		LicenseNumber: req.LicenseNumber,
	}, now)
	if err != nil {
		return nil, err
	}

	// 6. Atomic create.
	if err := s.bookings.Create(ctx, bk); err != nil {
		return nil, err
	}
	s.metrics.BookingAdmitted(string(bk.Status()))
	s.logger.Info("booking admitted",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("vehicle_id", v.ID().String()),
		zap.String("status", string(bk.Status())),
		zap.Int64("total_price", breakdown.TotalPrice),
	)

	// 7. Post-commit.
	cfg := s.engine.Config()
	s.saveSnapshot(ctx, bk, bookingDomain.SnapshotInputs{
		Interval:        interval,
		Policy:          v.Policy().Terms(),
		WithDriver:      req.WithDriver,
		RemainderPolicy: cfg.Remainder,
		Category:        cfg.Category,
		VATRate:         cfg.VATRate.String(),
		Currency:        breakdown.Currency,
		DisplayCurrency: strings.ToUpper(req.DisplayCurrency),
		DisplayRate:     displayRate,
	})

	result := &SubmitBookingResult{}
	if bk.Status() == bookingDomain.StatusPendingPayment {
		result.CheckoutURL = s.createCheckout(ctx, bk)
	}
	s.publishBookingRequested(ctx, bk)
	s.notifyAdmitted(bk, result.CheckoutURL)

	result.Booking = toBookingDTO(bk)
	return result, nil
}

// ApproveBooking confirms a pending_approval booking on behalf of the owner.
func (s *BookingService) ApproveBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && bk.OwnerID() != actor.UserID {
		return nil, domain.NewForbiddenError("only the vehicle owner can approve this booking")
	}

	from := bk.Status()
	if err := bk.Approve(s.now()); err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, bk, from); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// RejectBooking cancels a pending_approval booking on behalf of the owner.
func (s *BookingService) RejectBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && bk.OwnerID() != actor.UserID {
		return nil, domain.NewForbiddenError("only the vehicle owner can reject this booking")
	}
	if bk.Status() != bookingDomain.StatusPendingApproval {
		return nil, domain.NewInvalidStateError(string(bk.Status()), string(bookingDomain.StatusCancelled))
	}
	if strings.TrimSpace(reason) == "" {
		reason = bookingDomain.ReasonOwnerRejected
	}

	from := bk.Status()
	if err := bk.Cancel(reason, bookingDomain.CancelledByOwner, s.now()); err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, bk, from); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a non-terminal booking. The renter, the owner and
// admins may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var by bookingDomain.CancelledBy
	switch {
	case actor.UserID == bk.RenterID():
		by = bookingDomain.CancelledByRenter
	case actor.UserID == bk.OwnerID():
		by = bookingDomain.CancelledByOwner
	case actor.IsAdmin:
		by = bookingDomain.CancelledBySystem
	default:
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("a cancellation reason is required")
	}

	from := bk.Status()
	if err := bk.Cancel(strings.TrimSpace(reason), by, s.now()); err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, bk, from); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ConfirmPayment moves a pending_payment booking to confirmed. A booking
// that is already confirmed is returned unchanged. A payment for a booking
// that was cancelled meanwhile is reported as an invalid state and logged
// for refund.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.confirmPayment(ctx, bk); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

func (s *BookingService) confirmPayment(ctx context.Context, bk *bookingDomain.Booking) error {
	switch bk.Status() {
	case bookingDomain.StatusConfirmed, bookingDomain.StatusCompleted:
		return nil
	case bookingDomain.StatusCancelled:
		s.logger.Error("payment received for a cancelled booking, refund required",
			zap.String("booking_id", bk.ID().String()),
			zap.String("booking_number", bk.BookingNumber()),
			zap.String("cancellation_reason", bk.CancellationReason()),
		)
		return domain.NewInvalidStateError(string(bk.Status()), string(bookingDomain.StatusConfirmed))
	}

	from := bk.Status()
	if err := bk.ConfirmPayment(s.now()); err != nil {
		return err
	}
	return s.commitTransition(ctx, bk, from)
}

// CompleteBooking closes a confirmed booking whose interval has ended.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.complete(ctx, bk); err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

func (s *BookingService) complete(ctx context.Context, bk *bookingDomain.Booking) error {
	from := bk.Status()
	if err := bk.Complete(s.now()); err != nil {
		return err
	}
	return s.commitTransition(ctx, bk, from)
}

// CompleteDueBookings completes up to limit confirmed bookings that have ended.
func (s *BookingService) CompleteDueBookings(ctx context.Context, limit int) (int, error) {
	due, err := s.bookings.FindDueForCompletion(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load bookings due for completion: %w", err)
	}

	completed := 0
	for _, bk := range due {
		if err := s.complete(ctx, bk); err != nil {
			s.logger.Warn("failed to complete booking",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		completed++
	}
	return completed, nil
}

// GetBooking retrieves a single booking visible to actor.
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.loadVisible(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

func (s *BookingService) loadVisible(ctx context.Context, actor Actor, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !bk.IsParticipant(actor.UserID) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	return bk, nil
}

// GetRenterBookings retrieves paginated bookings made by a renter.
func (s *BookingService) GetRenterBookings(ctx context.Context, renterID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByRenterID(ctx, renterID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetOwnerBookings retrieves paginated bookings on an owner's vehicles.
func (s *BookingService) GetOwnerBookings(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// CheckAvailability exposes the fail-closed checker.
func (s *BookingService) CheckAvailability(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*AvailabilityDTO, error) {
	interval, err := pricing.NewRentalInterval(start, end)
	if err != nil {
		return nil, err
	}
	if _, err := s.vehicles.FindByID(ctx, vehicleID); err != nil {
		return nil, err
	}

	res := s.checker.Check(ctx, availability.Query{VehicleID: vehicleID, Interval: interval, ExcludeBookingID: exclude})
	s.metrics.AvailabilityChecked(string(res.Outcome))
	return &AvailabilityDTO{
		VehicleID: vehicleID,
		StartAt:   interval.Start,
		EndAt:     interval.End,
		Available: res.IsAvailable(),
		Outcome:   string(res.Outcome),
		Reason:    res.Reason,
	}, nil
}

// AvailabilityDTO is the answer to an availability query. Available is true
// only for a definite "available" outcome.
type AvailabilityDTO struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Available bool      `json:"available"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	for _, st := range bookingDomain.AllStatuses() {
		if _, ok := counts[string(st)]; !ok {
			counts[string(st)] = 0
		}
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// --- Helpers ---

func (s *BookingService) price(interval pricing.RentalInterval, policy pricing.VehicleRentalPolicy, withDriver bool) (pricing.Breakdown, error) {
	start := time.Now()
	breakdown, err := s.engine.Quote(pricing.Request{Interval: interval, Policy: policy, WithDriver: withDriver})
	s.metrics.ObservePricing(time.Since(start))
	return breakdown, err
}

// commitTransition persists a status change, then publishes and notifies.
func (s *BookingService) commitTransition(ctx context.Context, bk *bookingDomain.Booking, from bookingDomain.BookingStatus) error {
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return err
	}

	s.logger.Info("booking status changed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("from", string(from)),
		zap.String("to", string(bk.Status())),
	)

	evt := bookingDomain.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		VehicleID:     bk.VehicleID(),
		OwnerID:       bk.OwnerID(),
		RenterID:      bk.RenterID(),
		FromStatus:    string(from),
		ToStatus:      string(bk.Status()),
		Reason:        bk.CancellationReason(),
		CancelledBy:   string(bk.CancelledBy()),
		OccurredAt:    s.now(),
	}
	switch bk.Status() {
	case bookingDomain.StatusConfirmed:
		s.publishEvent(ctx, bookingDomain.EventBookingConfirmed, bk.ID(), evt)
		s.notify(notification.TemplateBookingConfirmed, bk, bk.RenterEmail(), bk.OwnerEmail())
	case bookingDomain.StatusCancelled:
		s.publishEvent(ctx, bookingDomain.EventBookingCancelled, bk.ID(), evt)
		s.notify(notification.TemplateBookingCancelled, bk, bk.RenterEmail(), bk.OwnerEmail())
	case bookingDomain.StatusCompleted:
		s.publishEvent(ctx, bookingDomain.EventBookingCompleted, bk.ID(), evt)
		s.notify(notification.TemplateBookingCompleted, bk, bk.RenterEmail())
	}
	return nil
}

func (s *BookingService) saveSnapshot(ctx context.Context, bk *bookingDomain.Booking, inputs bookingDomain.SnapshotInputs) {
	snap, err := bookingDomain.NewSnapshot(bk.ID(), bk.Pricing(), inputs, s.now())
	if err == nil {
		err = s.snapshots.Save(ctx, snap)
	}
	if err != nil {
		s.postCommitFailed(bk, "SNAPSHOT", err)
	}
}

func (s *BookingService) createCheckout(ctx context.Context, bk *bookingDomain.Booking) string {
	session, err := s.payments.CreateCheckoutSession(ctx, bk.ID(), bk.Pricing().TotalPrice, bk.Pricing().Currency, map[string]string{
		"booking_number": bk.BookingNumber(),
		"vehicle_id":     bk.VehicleID().String(),
		"renter_id":      bk.RenterID().String(),
	})
	if err != nil {
		s.postCommitFailed(bk, "CHECKOUT", err)
		return ""
	}
	return session.URL
}

func (s *BookingService) postCommitFailed(bk *bookingDomain.Booking, step string, err error) {
	pcErr := domain.NewPostCommitError(step, err)
	s.metrics.PostCommitFailed(strings.ToLower(step))
	s.logger.Error("post-commit step failed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("step", step),
		zap.Error(pcErr),
	)
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking) {
	evt := bookingDomain.BookingRequestedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		VehicleID:     bk.VehicleID(),
		OwnerID:       bk.OwnerID(),
		RenterID:      bk.RenterID(),
		Status:        string(bk.Status()),
		PaymentMethod: string(bk.PaymentMethod()),
		StartAt:       bk.Interval().Start,
		EndAt:         bk.Interval().End,
		TotalPrice:    bk.Pricing().TotalPrice,
		HostNetAmount: bk.Pricing().HostNetAmount,
		Currency:      bk.Pricing().Currency,
		OccurredAt:    s.now(),
	}
	s.publishEvent(ctx, bookingDomain.EventBookingRequested, bk.ID(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, subject uuid.UUID, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject.String()

	if err := s.publisher.PublishEvent(ctx, bookingDomain.TopicBookingEvents, cloudEvent); err != nil {
		s.metrics.PostCommitFailed("publish")
		s.logger.Error("failed to publish event",
			zap.String("topic", bookingDomain.TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (s *BookingService) notifyAdmitted(bk *bookingDomain.Booking, checkoutURL string) {
	s.notify(notification.TemplateBookingRequested, bk, bk.OwnerEmail())
	switch bk.Status() {
	case bookingDomain.StatusPendingPayment:
		data := notificationData(bk)
		if checkoutURL != "" {
			data["checkout_url"] = checkoutURL
		}
		if due := bk.PaymentExpiresAt(); due != nil {
			data["pay_before"] = due.Format(time.RFC3339)
		}
		s.notifier.Dispatch(notification.TemplatePaymentRequired, bk.RenterEmail(), data)
	case bookingDomain.StatusConfirmed:
		s.notify(notification.TemplateBookingConfirmed, bk, bk.RenterEmail())
	}
}

func (s *BookingService) notify(template notification.Template, bk *bookingDomain.Booking, recipients ...string) {
	for _, to := range recipients {
		if to == "" {
			continue
		}
		s.notifier.Dispatch(template, to, notificationData(bk))
	}
}

func notificationData(bk *bookingDomain.Booking) map[string]string {
	data := map[string]string{
		"booking_number": bk.BookingNumber(),
		"status":         string(bk.Status()),
		"start_at":       bk.Interval().Start.Format(time.RFC3339),
		"end_at":         bk.Interval().End.Format(time.RFC3339),
		"total_price":    fmt.Sprintf("%d %s", bk.Pricing().TotalPrice, bk.Pricing().Currency),
	}
	if bk.CancellationReason() != "" {
		data["cancellation_reason"] = bk.CancellationReason()
	}
	return data
}

func displayAmounts(b pricing.Breakdown) currency.Amounts {
	return currency.Amounts{
		BasePrice:           b.BasePrice,
		DriverFee:           b.DriverFee,
		BasePriceWithDriver: b.BasePriceWithDriver,
		ServiceFee:          b.ServiceFee.Total,
		TotalPrice:          b.TotalPrice,
		SecurityDeposit:     b.SecurityDeposit,
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                 bk.ID(),
		BookingNumber:      bk.BookingNumber(),
		VehicleID:          bk.VehicleID(),
		OwnerID:            bk.OwnerID(),
		RenterID:           bk.RenterID(),
		Status:             string(bk.Status()),
		StartAt:            bk.Interval().Start,
		EndAt:              bk.Interval().End,
		RentalType:         string(bk.RentalType()),
		PaymentMethod:      string(bk.PaymentMethod()),
		WithDriver:         bk.WithDriver(),
		LicenseNumber:      bk.LicenseNumber(),
		Pricing:            bk.Pricing(),
		PaymentExpiresAt:   bk.PaymentExpiresAt(),
		ConfirmedAt:        bk.ConfirmedAt(),
		CompletedAt:        bk.CompletedAt(),
		CancelledAt:        bk.CancelledAt(),
		CancellationReason: bk.CancellationReason(),
		CancelledBy:        string(bk.CancelledBy()),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}
