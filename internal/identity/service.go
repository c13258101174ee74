package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// SlotRemover deletes the availability slots a doctor owns.
type SlotRemover interface {
	RemoveDoctorSlots(ctx context.Context, doctorID int64) (int64, error)
}

// Directory resolves doctors and patients for the scheduling core and owns
// the few identity mutations the service exposes.
type Directory struct {
	repo  Repository
	slots SlotRemover
	log   zerolog.Logger
}

func NewDirectory(repo Repository, slots SlotRemover, log zerolog.Logger) *Directory {
	return &Directory{
		repo:  repo,
		slots: slots,
		log:   log.With().Str("component", "identity").Logger(),
	}
}

func (d *Directory) FindDoctor(ctx context.Context, id int64) (*Doctor, error) {
	doc, err := d.repo.GetDoctorByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, apperr.NotFound("doctor %d not found", id)
		}
		return nil, fmt.Errorf("load doctor %d: %w", id, err)
	}
	return doc, nil
}

func (d *Directory) FindPatient(ctx context.Context, id int64) (*Patient, error) {
	p, err := d.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound("patient %d not found", id)
		}
		return nil, fmt.Errorf("load patient %d: %w", id, err)
	}
	return p, nil
}

// ResolveByEmail looks the address up as a doctor first and as a patient
// second. Emails are only unique per table, so an address registered on both
// sides always resolves to the doctor.
func (d *Directory) ResolveByEmail(ctx context.Context, email string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	doc, err := d.repo.FindDoctorByEmail(ctx, email)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrDoctorNotFound) {
		return nil, fmt.Errorf("resolve doctor by email: %w", err)
	}

	p, err := d.repo.FindPatientByEmail(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("resolve patient by email: %w", err)
	}

	return nil, apperr.NotFound("user not found with email: %s", email)
}

// SearchDoctors pages through doctors, optionally filtered by specialization.
// page is zero based.
func (d *Directory) SearchDoctors(ctx context.Context, specialization string, page, size int) (*DoctorPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	doctors, total, err := d.repo.SearchDoctors(ctx, strings.TrimSpace(specialization), size, page*size)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}

	totalPages := (total + size - 1) / size
	return &DoctorPage{
		Doctors:     doctors,
		Page:        page,
		Size:        size,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page+1 < totalPages,
		HasPrevious: page > 0,
	}, nil
}

func (d *Directory) RegisterDoctor(ctx context.Context, doc *Doctor) error {
	if err := d.checkNewUser(ctx, doc.Name, doc.Email); err != nil {
		return err
	}
	if err := d.repo.CreateDoctor(ctx, doc); err != nil {
		return err
	}
	d.log.Info().Int64("doctor_id", doc.ID).Msg("doctor registered")
	return nil
}

func (d *Directory) RegisterPatient(ctx context.Context, p *Patient) error {
	if err := d.checkNewUser(ctx, p.Name, p.Email); err != nil {
		return err
	}
	if err := d.repo.CreatePatient(ctx, p); err != nil {
		return err
	}
	d.log.Info().Int64("patient_id", p.ID).Msg("patient registered")
	return nil
}

// checkNewUser rejects an email already used by either a doctor or a patient.
func (d *Directory) checkNewUser(ctx context.Context, name, email string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("invalid email %q", email)
	}

	_, err := d.ResolveByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (d *Directory) UpdateMedicalHistory(ctx context.Context, patientID int64, history string) (*Patient, error) {
	p, err := d.repo.UpdateMedicalHistory(ctx, patientID, history)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound("patient %d not found", patientID)
		}
		return nil, fmt.Errorf("update medical history: %w", err)
	}
	return p, nil
}

// RemoveDoctor deletes the doctor's slots and then the doctor. A doctor that
// still has appointments is refused; the ledger never loses records.
func (d *Directory) RemoveDoctor(ctx context.Context, id int64) error {
	if _, err := d.FindDoctor(ctx, id); err != nil {
		return err
	}

	busy, err := d.repo.HasAppointments(ctx, id)
	if err != nil {
		return fmt.Errorf("check appointments of doctor %d: %w", id, err)
	}
	if busy {
		return apperr.Conflict("doctor %d still has appointments", id)
	}

	removed, err := d.slots.RemoveDoctorSlots(ctx, id)
	if err != nil {
		return fmt.Errorf("remove slots of doctor %d: %w", id, err)
	}

	if err := d.repo.DeleteDoctor(ctx, id); err != nil {
		if errors.Is(err, ErrDoctorInUse) {
			return apperr.Conflict("doctor %d still has appointments", id)
		}
		if errors.Is(err, ErrDoctorNotFound) {
			return apperr.NotFound("doctor %d not found", id)
		}
		return fmt.Errorf("delete doctor %d: %w", id, err)
	}

	d.log.Info().Int64("doctor_id", id).Int64("slots_removed", removed).Msg("doctor removed")
	return nil
}
