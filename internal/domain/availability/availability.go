package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Lokato-Mobility/service-booking/internal/domain/pricing"
	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// Outcome is the tagged answer of an availability check.
type Outcome string

const (
	Available     Outcome = "available"
	Unavailable   Outcome = "unavailable"
	Indeterminate Outcome = "indeterminate"
)

// CodeSlotUnavailable marks conflicts caused by an overlapping booking.
const CodeSlotUnavailable = "SLOT_UNAVAILABLE"

// ErrSlotUnavailable matches any slot conflict with errors.Is.
var ErrSlotUnavailable = &domain.AppError{Kind: domain.KindConflict, Code: CodeSlotUnavailable}

// Query asks whether a vehicle is free over an interval. ExcludeBookingID
// lets a booking being modified ignore itself.
type Query struct {
	VehicleID        uuid.UUID
	Interval         pricing.RentalInterval
	ExcludeBookingID *uuid.UUID
}

// Result is what a Checker returns. Reason is set for non-available outcomes.
type Result struct {
	Outcome Outcome
	Reason  string
}

// IsAvailable is true only for a definite Available outcome.
func (r Result) IsAvailable() bool { return r.Outcome == Available }

// Oracle answers overlap questions against every non-cancelled booking.
// Implementations return Indeterminate (or an error) when they cannot answer.
type Oracle interface {
	CheckAvailability(ctx context.Context, q Query) (Outcome, error)
}

// Checker wraps an Oracle and fails closed.
type Checker struct {
	oracle Oracle
}

// NewChecker creates a Checker.
func NewChecker(oracle Oracle) *Checker {
	return &Checker{oracle: oracle}
}

// Check never reports Available unless the oracle positively said so. Oracle
// errors become Indeterminate.
func (c *Checker) Check(ctx context.Context, q Query) Result {
	if q.VehicleID == uuid.Nil || !q.Interval.End.After(q.Interval.Start) {
		return Result{Outcome: Indeterminate, Reason: "invalid availability query"}
	}

	outcome, err := c.oracle.CheckAvailability(ctx, q)
	if err != nil {
		return Result{Outcome: Indeterminate, Reason: fmt.Sprintf("availability oracle failed: %v", err)}
	}

	switch outcome {
	case Available:
		return Result{Outcome: Available}
	case Unavailable:
		return Result{Outcome: Unavailable, Reason: "vehicle is already booked for an overlapping period"}
	default:
		return Result{Outcome: Indeterminate, Reason: "availability could not be determined"}
	}
}

// Require returns nil only for a definite Available result, and a conflict
// error carrying the reason otherwise.
func (c *Checker) Require(ctx context.Context, q Query) (Result, error) {
	res := c.Check(ctx, q)
	if res.IsAvailable() {
		return res, nil
	}
	return res, domain.NewConflictErrorCode(CodeSlotUnavailable, res.Reason)
}
