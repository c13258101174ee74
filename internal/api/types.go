package api

import (
	"time"

	"github.com/hackgods/healthcare-scheduling/internal/appointment"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
)

// Requests

type BookAppointmentRequest struct {
	PatientID       int64  `json:"patientId" validate:"required,gt=0"`
	DoctorID        int64  `json:"doctorId" validate:"required,gt=0"`
	AppointmentTime string `json:"appointmentTime" validate:"required"`
}

type CancelAppointmentRequest struct {
	AppointmentID int64 `json:"appointmentId" validate:"required,gt=0"`
}

// PrescriptionRequest is checked by the service so blank text reports the
// same message over HTTP as anywhere else.
type PrescriptionRequest struct {
	Prescription string `json:"prescription"`
}

type AddSlotRequest struct {
	AvailableTime string `json:"availableTime" validate:"required"`
}

type MedicalHistoryRequest struct {
	MedicalHistory string `json:"medicalHistory"`
}

// Responses

type AppointmentResponse struct {
	ID              int64     `json:"id"`
	DoctorID        int64     `json:"doctorId"`
	PatientID       int64     `json:"patientId"`
	DoctorName      string    `json:"doctorName,omitempty"`
	PatientName     string    `json:"patientName,omitempty"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type MessageResponse struct {
	Message     string               `json:"message"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

type SlotResponse struct {
	ID            int64     `json:"id"`
	DoctorID      int64     `json:"doctorId"`
	AvailableTime time.Time `json:"availableTime"`
}

type DoctorResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
}

type DoctorPageResponse struct {
	Doctors     []DoctorResponse `json:"doctors"`
	Page        int              `json:"page"`
	Size        int              `json:"size"`
	TotalItems  int              `json:"totalItems"`
	TotalPages  int              `json:"totalPages"`
	HasNext     bool             `json:"hasNext"`
	HasPrevious bool             `json:"hasPrevious"`
}

type PatientResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	MedicalHistory string `json:"medicalHistory"`
}

type MedicalRecordsResponse struct {
	Patient PatientResponse       `json:"patient"`
	Records []AppointmentResponse `json:"records"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Mapping

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		AppointmentTime: a.AppointmentTime,
		Status:          string(a.Status),
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
	}
}

func toAppointmentList(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toSlotList(list []availability.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, SlotResponse{ID: s.ID, DoctorID: s.DoctorID, AvailableTime: s.AvailableTime})
	}
	return out
}

func toDoctorResponse(d identity.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:             d.ID,
		Name:           d.Name,
		Specialization: d.Specialization,
		Email:          d.Email,
		Phone:          d.Phone,
	}
}

func toPatientResponse(p identity.Patient) PatientResponse {
	return PatientResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		MedicalHistory: p.MedicalHistory,
	}
}
