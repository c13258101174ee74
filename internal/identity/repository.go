package identity

import (
	"context"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
)

var (
	ErrDoctorNotFound  = apperr.New(apperr.ErrNotFound, "doctor not found")
	ErrPatientNotFound = apperr.New(apperr.ErrNotFound, "patient not found")
	ErrEmailTaken      = apperr.New(apperr.ErrConflict, "email already exists")
	ErrDoctorInUse     = apperr.New(apperr.ErrConflict, "doctor still has appointments")
)

// Repository is the storage side of the identity store.
type Repository interface {
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	FindDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
	FindPatientByEmail(ctx context.Context, email string) (*Patient, error)

	// SearchDoctors matches specialization case-insensitively as a substring;
	// an empty filter lists everyone. Returns the page and the total count.
	SearchDoctors(ctx context.Context, specialization string, limit, offset int) ([]Doctor, int, error)

	CreateDoctor(ctx context.Context, d *Doctor) error
	CreatePatient(ctx context.Context, p *Patient) error
	UpdateMedicalHistory(ctx context.Context, patientID int64, history string) (*Patient, error)
	HasAppointments(ctx context.Context, doctorID int64) (bool, error)
	DeleteDoctor(ctx context.Context, id int64) error
}
