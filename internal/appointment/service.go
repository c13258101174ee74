package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
	redisclient "github.com/hackgods/healthcare-scheduling/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventPrescriptionAdded    = "PRESCRIPTION_ADDED"
)

// People resolves the doctor and patient of a booking. Both lookups return
// an apperr NotFound for unknown ids.
type People interface {
	FindDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
	FindPatient(ctx context.Context, id int64) (*identity.Patient, error)
}

type Service struct {
	ledger    Ledger
	conflicts ConflictChecker
	people    People
	locker    redisclient.Locker
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(ledger Ledger, people People, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		ledger:    ledger,
		conflicts: NewConflictChecker(ledger),
		people:    people,
		locker:    locker,
		log:       log.With().Str("component", "appointment").Logger(),
		now:       time.Now,
	}
}

// BookAppointment schedules a patient with a doctor at an exact instant.
// The conflict check and the insert run under a lock keyed by doctor and
// time, and the ledger's unique index backs the lock up.
func (s *Service) BookAppointment(ctx context.Context, patientID, doctorID int64, at time.Time) (*Booking, error) {
	if patientID <= 0 {
		return nil, apperr.Validation("patient id must be positive")
	}
	if doctorID <= 0 {
		return nil, apperr.Validation("doctor id must be positive")
	}
	if at.IsZero() {
		return nil, apperr.Validation("appointment time is required")
	}

	at = normalize(at)
	if !at.After(s.now()) {
		return nil, apperr.Validation("appointment time %s must be in the future", at.Format(time.RFC3339))
	}

	doctor, err := s.people.FindDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.people.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, redisclient.BookingKey(doctorID, at), func(lockCtx context.Context) error {
		taken, err := s.conflicts.ExistsScheduledConflict(lockCtx, doctorID, at)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("doctor %d already has an appointment at %s", doctorID, at.Format(time.RFC3339))
		}

		appt, err := s.ledger.Create(lockCtx, doctorID, patientID, at)
		if err != nil {
			if errors.Is(err, ErrAlreadyScheduled) {
				return apperr.Conflict("doctor %d already has an appointment at %s", doctorID, at.Format(time.RFC3339))
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, apperr.Conflict("doctor %d is being booked at %s, please retry", doctorID, at.Format(time.RFC3339))
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"doctor_id":        doctorID,
		"patient_id":       patientID,
		"appointment_time": at,
	})

	s.log.Info().
		Int64("appointment_id", created.ID).
		Int64("doctor_id", doctorID).
		Int64("patient_id", patientID).
		Time("appointment_time", at).
		Msg("appointment booked")

	return &Booking{
		Appointment: *created,
		DoctorName:  doctor.DisplayName(),
		PatientName: patient.DisplayName(),
	}, nil
}

// CancelAppointment moves a scheduled appointment to cancelled
func (s *Service) CancelAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, EventAppointmentCancelled, "appointment %d cannot be cancelled: status is %s")
}

// CompleteAppointment moves a scheduled appointment to completed
func (s *Service) CompleteAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, EventAppointmentCompleted, "only scheduled appointments can be completed: appointment %d is %s")
}

func (s *Service) transition(ctx context.Context, id int64, to Status, eventType, refusal string) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !appt.Status.CanTransition(to) {
		return nil, apperr.InvalidTransition(refusal, id, appt.Status)
	}

	updated, err := s.ledger.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("update appointment %d to %s: %w", id, to, err)
		}
		// another request changed the status between our read and the update
		current, rerr := s.GetAppointment(ctx, id)
		if rerr != nil {
			return nil, rerr
		}
		return nil, apperr.InvalidTransition(refusal, id, current.Status)
	}

	s.logEvent(ctx, id, eventType, map[string]any{
		"from": appt.Status,
		"to":   to,
	})
	s.log.Info().Int64("appointment_id", id).Str("status", string(to)).Msg("appointment status changed")

	return updated, nil
}

// AddPrescription stores the prescription text as the notes of a completed
// appointment. The status does not change.
func (s *Service) AddPrescription(ctx context.Context, id int64, text string) (*Appointment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("prescription must not be empty")
	}

	appt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusCompleted {
		return nil, apperr.InvalidState("prescription can only be added to a completed appointment: appointment %d is %s", id, appt.Status)
	}

	updated, err := s.ledger.SetNotes(ctx, id, text)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.InvalidState("prescription can only be added to a completed appointment: appointment %d changed", id)
		}
		return nil, fmt.Errorf("set notes of appointment %d: %w", id, err)
	}

	s.logEvent(ctx, id, EventPrescriptionAdded, map[string]any{
		"length": len(text),
	})

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound("appointment %d not found", id)
		}
		return nil, fmt.Errorf("load appointment %d: %w", id, err)
	}
	return appt, nil
}

// ListPatientAppointments returns every appointment of a patient, latest first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID int64) ([]Appointment, error) {
	if _, err := s.people.FindPatient(ctx, patientID); err != nil {
		return nil, err
	}
	list, err := s.ledger.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments of patient %d: %w", patientID, err)
	}
	return list, nil
}

// ListDoctorSchedule returns every appointment of a doctor, latest first.
func (s *Service) ListDoctorSchedule(ctx context.Context, doctorID int64) ([]Appointment, error) {
	if _, err := s.people.FindDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	list, err := s.ledger.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments of doctor %d: %w", doctorID, err)
	}
	return list, nil
}

// PatientMedicalRecords returns the completed appointments of a patient that
// carry a prescription, latest first.
func (s *Service) PatientMedicalRecords(ctx context.Context, patientID int64) ([]Appointment, error) {
	if _, err := s.people.FindPatient(ctx, patientID); err != nil {
		return nil, err
	}
	list, err := s.ledger.ListMedicalRecords(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical records of patient %d: %w", patientID, err)
	}
	return list, nil
}

// logEvent appends to the event log. A failure here is logged and never
// fails the operation that produced the event.
func (s *Service) logEvent(ctx context.Context, appointmentID int64, eventType string, payload map[string]any) {
	payload["appointment_id"] = appointmentID

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventID:       uuid.New(),
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.ledger.InsertEvent(ctx, ev); err != nil {
		s.log.Error().
			Err(err).
			Str("event_type", eventType).
			Int64("appointment_id", appointmentID).
			Msg("failed to insert event log")
	}
}
