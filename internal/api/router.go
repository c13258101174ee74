package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Appointments AppointmentService
	Slots        SlotService
	Directory    Directory
	Health       *HealthHandler
	Location     *time.Location // zone for date-times sent without an offset
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/book", bookAppointmentHandler(cfg.Appointments, cfg.Location))
			r.Post("/cancel", cancelAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/prescription", addPrescriptionHandler(cfg.Appointments))
			r.Get("/patient/{id}", patientAppointmentsHandler(cfg.Appointments))
			r.Get("/doctor/{id}", doctorScheduleHandler(cfg.Appointments))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", searchDoctorsHandler(cfg.Directory))
			r.Get("/{id}", getDoctorHandler(cfg.Directory))
			r.Post("/{id}/slots", addSlotHandler(cfg.Slots, cfg.Location))
			r.Get("/{id}/availability", availabilityHandler(cfg.Slots))
		})

		r.Route("/medical-records", func(r chi.Router) {
			r.Get("/patient/{id}", medicalRecordsHandler(cfg.Directory, cfg.Appointments))
			r.Put("/patient/{id}/medical-history", updateMedicalHistoryHandler(cfg.Directory))
		})
	})

	return r
}
