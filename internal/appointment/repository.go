package appointment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyScheduled    = errors.New("doctor already has a scheduled appointment at that time")
)

// Ledger contains all DB interactions needed by the service.
type Ledger interface {
	// For conflict checks
	ExistsScheduled(ctx context.Context, doctorID int64, at time.Time) (bool, error)

	// Creation and updates. Create returns ErrAlreadyScheduled when the
	// storage uniqueness rule rejects the row. UpdateStatus and SetNotes
	// return ErrAppointmentNotFound when no row matched their condition.
	Create(ctx context.Context, doctorID, patientID int64, at time.Time) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)
	SetNotes(ctx context.Context, id int64, notes string) (*Appointment, error)

	// Listings, newest appointment time first
	ListByPatient(ctx context.Context, patientID int64) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error)
	ListMedicalRecords(ctx context.Context, patientID int64) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
