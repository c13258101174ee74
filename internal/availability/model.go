package availability

import "time"

// Slot is a time a doctor advertises as free. Slots are advisory; booking an
// appointment does not consume one.
type Slot struct {
	ID            int64
	DoctorID      int64
	AvailableTime time.Time
	CreatedAt     time.Time
}
