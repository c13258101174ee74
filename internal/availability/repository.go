package availability

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSlotExists = errors.New("slot already exists")
)

// Repository is the slot registry's storage.
type Repository interface {
	// Create inserts the slot or returns ErrSlotExists when the doctor already
	// has one at that instant.
	Create(ctx context.Context, doctorID int64, at time.Time) (*Slot, error)

	// ListAfter returns the doctor's slots strictly after the given instant,
	// oldest first.
	ListAfter(ctx context.Context, doctorID int64, after time.Time) ([]Slot, error)

	DeleteByDoctor(ctx context.Context, doctorID int64) (int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
