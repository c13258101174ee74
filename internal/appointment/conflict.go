package appointment

import (
	"context"
	"time"
)

// ConflictChecker answers whether a doctor is already booked at an instant.
// It is backed by the partial unique index on scheduled appointments.
type ConflictChecker struct {
	ledger Ledger
}

func NewConflictChecker(ledger Ledger) ConflictChecker {
	return ConflictChecker{ledger: ledger}
}

func (c ConflictChecker) ExistsScheduledConflict(ctx context.Context, doctorID int64, at time.Time) (bool, error) {
	return c.ledger.ExistsScheduled(ctx, doctorID, normalize(at))
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
