package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// SCHEDULED is the only state with a way out.
func (s Status) CanTransition(next Status) bool {
	if s != StatusScheduled {
		return false
	}
	return next == StatusCancelled || next == StatusCompleted
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Appointment struct {
	ID              int64
	DoctorID        int64
	PatientID       int64
	AppointmentTime time.Time
	Status          Status
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Booking is a freshly created appointment with the names the caller shows.
type Booking struct {
	Appointment
	DoctorName  string
	PatientName string
}

type EventLog struct {
	ID            int64
	EventID       uuid.UUID
	EventType     string
	AppointmentID *int64
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}
