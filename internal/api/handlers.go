package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hackgods/healthcare-scheduling/internal/appointment"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
)

type AppointmentService interface {
	BookAppointment(ctx context.Context, patientID, doctorID int64, at time.Time) (*appointment.Booking, error)
	CancelAppointment(ctx context.Context, id int64) (*appointment.Appointment, error)
	CompleteAppointment(ctx context.Context, id int64) (*appointment.Appointment, error)
	AddPrescription(ctx context.Context, id int64, text string) (*appointment.Appointment, error)
	ListPatientAppointments(ctx context.Context, patientID int64) ([]appointment.Appointment, error)
	ListDoctorSchedule(ctx context.Context, doctorID int64) ([]appointment.Appointment, error)
	PatientMedicalRecords(ctx context.Context, patientID int64) ([]appointment.Appointment, error)
}

type SlotService interface {
	AddAvailableSlot(ctx context.Context, doctorID int64, at time.Time) (*availability.Slot, error)
	UpcomingSlots(ctx context.Context, doctorID int64) ([]availability.Slot, error)
}

type Directory interface {
	FindDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
	FindPatient(ctx context.Context, id int64) (*identity.Patient, error)
	SearchDoctors(ctx context.Context, specialization string, page, size int) (*identity.DoctorPage, error)
	UpdateMedicalHistory(ctx context.Context, patientID int64, history string) (*identity.Patient, error)
}

// Appointments

func bookAppointmentHandler(svc AppointmentService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		at, err := parseTime(req.AppointmentTime, loc)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		booking, err := svc.BookAppointment(r.Context(), req.PatientID, req.DoctorID, at)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		resp := toAppointmentResponse(booking.Appointment)
		resp.DoctorName = booking.DoctorName
		resp.PatientName = booking.PatientName

		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), req.AppointmentID)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		resp := toAppointmentResponse(*appt)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Appointment cancelled successfully", Appointment: &resp})
	}
}

func completeAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		appt, err := svc.CompleteAppointment(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		resp := toAppointmentResponse(*appt)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Appointment marked as completed", Appointment: &resp})
	}
}

func addPrescriptionHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		var req PrescriptionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appt, err := svc.AddPrescription(r.Context(), id, req.Prescription)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		resp := toAppointmentResponse(*appt)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Prescription added successfully", Appointment: &resp})
	}
}

func patientAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		list, err := svc.ListPatientAppointments(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func doctorScheduleHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		list, err := svc.ListDoctorSchedule(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}
