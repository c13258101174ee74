package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
	"github.com/hackgods/healthcare-scheduling/internal/appointment"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
)

// -- Stub services --

type stubAppointments struct {
	bookedAt  time.Time
	book      func(patientID, doctorID int64, at time.Time) (*appointment.Booking, error)
	cancel    func(id int64) (*appointment.Appointment, error)
	complete  func(id int64) (*appointment.Appointment, error)
	prescribe func(id int64, text string) (*appointment.Appointment, error)
	list      []appointment.Appointment
	listErr   error
}

func (s *stubAppointments) BookAppointment(_ context.Context, patientID, doctorID int64, at time.Time) (*appointment.Booking, error) {
	s.bookedAt = at
	return s.book(patientID, doctorID, at)
}

func (s *stubAppointments) CancelAppointment(_ context.Context, id int64) (*appointment.Appointment, error) {
	return s.cancel(id)
}

func (s *stubAppointments) CompleteAppointment(_ context.Context, id int64) (*appointment.Appointment, error) {
	return s.complete(id)
}

func (s *stubAppointments) AddPrescription(_ context.Context, id int64, text string) (*appointment.Appointment, error) {
	return s.prescribe(id, text)
}

func (s *stubAppointments) ListPatientAppointments(context.Context, int64) ([]appointment.Appointment, error) {
	return s.list, s.listErr
}

func (s *stubAppointments) ListDoctorSchedule(context.Context, int64) ([]appointment.Appointment, error) {
	return s.list, s.listErr
}

func (s *stubAppointments) PatientMedicalRecords(context.Context, int64) ([]appointment.Appointment, error) {
	return s.list, s.listErr
}

type stubSlots struct {
	added    []time.Time
	addErr   error
	upcoming []availability.Slot
	listErr  error
}

func (s *stubSlots) AddAvailableSlot(_ context.Context, doctorID int64, at time.Time) (*availability.Slot, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.added = append(s.added, at)
	return &availability.Slot{ID: 1, DoctorID: doctorID, AvailableTime: at}, nil
}

func (s *stubSlots) UpcomingSlots(context.Context, int64) ([]availability.Slot, error) {
	return s.upcoming, s.listErr
}

type stubDirectory struct {
	doctors  map[int64]*identity.Doctor
	patients map[int64]*identity.Patient
	page     *identity.DoctorPage
	spec     string
	pageNo   int
	size     int
}

func (s *stubDirectory) FindDoctor(_ context.Context, id int64) (*identity.Doctor, error) {
	if d, ok := s.doctors[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("doctor %d not found", id)
}

func (s *stubDirectory) FindPatient(_ context.Context, id int64) (*identity.Patient, error) {
	if p, ok := s.patients[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("patient %d not found", id)
}

func (s *stubDirectory) SearchDoctors(_ context.Context, specialization string, page, size int) (*identity.DoctorPage, error) {
	s.spec, s.pageNo, s.size = specialization, page, size
	return s.page, nil
}

func (s *stubDirectory) UpdateMedicalHistory(_ context.Context, id int64, history string) (*identity.Patient, error) {
	p, ok := s.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient %d not found", id)
	}
	p.MedicalHistory = history
	return p, nil
}

type testEnv struct {
	appts   *stubAppointments
	slots   *stubSlots
	dir     *stubDirectory
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		appts: &stubAppointments{},
		slots: &stubSlots{},
		dir: &stubDirectory{
			doctors:  map[int64]*identity.Doctor{5: {ID: 5, Name: "Dr. Grey", Specialization: "Cardiology", Email: "grey@clinic.test"}},
			patients: map[int64]*identity.Patient{7: {ID: 7, Name: "Ada", Email: "ada@mail.test"}},
		},
	}
	loc, err := time.LoadLocation("UTC")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	env.handler = NewRouter(RouterConfig{
		Appointments: env.appts,
		Slots:        env.slots,
		Directory:    env.dir,
		Location:     loc,
		Logger:       zerolog.Nop(),
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

var bookedTime = time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

// -- Tests --

func TestBook_Success(t *testing.T) {
	env := newTestEnv(t)
	env.appts.book = func(patientID, doctorID int64, at time.Time) (*appointment.Booking, error) {
		return &appointment.Booking{
			Appointment: appointment.Appointment{ID: 1, DoctorID: doctorID, PatientID: patientID, AppointmentTime: at, Status: appointment.StatusScheduled},
			DoctorName:  "Dr. Grey",
			PatientName: "Ada",
		}, nil
	}

	rec := env.do(t, http.MethodPost, "/api/appointments/book",
		`{"patientId":7,"doctorId":5,"appointmentTime":"2030-01-01T10:00:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "SCHEDULED" || resp.DoctorName != "Dr. Grey" || resp.PatientName != "Ada" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !env.appts.bookedAt.Equal(bookedTime) {
		t.Fatalf("local date-time should be read in the configured zone, got %s", env.appts.bookedAt)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestBook_DomainErrorsAre400(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"conflict", apperr.Conflict("doctor 5 already has an appointment at 2030-01-01T10:00:00Z"), "conflict"},
		{"past time", apperr.Validation("appointment time must be in the future"), "validation"},
		{"unknown doctor", apperr.NotFound("doctor 404 not found"), "not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.appts.book = func(int64, int64, time.Time) (*appointment.Booking, error) { return nil, tc.err }

			rec := env.do(t, http.MethodPost, "/api/appointments/book",
				`{"patientId":7,"doctorId":5,"appointmentTime":"2030-01-01T10:00:00Z"}`)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tc.code || resp.Error != tc.err.Error() {
				t.Fatalf("unexpected body %+v", resp)
			}
		})
	}
}

func TestBook_InternalErrorIs500(t *testing.T) {
	env := newTestEnv(t)
	env.appts.book = func(int64, int64, time.Time) (*appointment.Booking, error) {
		return nil, errors.New("connection refused")
	}

	rec := env.do(t, http.MethodPost, "/api/appointments/book",
		`{"patientId":7,"doctorId":5,"appointmentTime":"2030-01-01T10:00:00Z"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatal("infrastructure details must not leak to the client")
	}
}

func TestBook_RequestValidation(t *testing.T) {
	env := newTestEnv(t)
	env.appts.book = func(int64, int64, time.Time) (*appointment.Booking, error) {
		t.Fatal("service must not be called for an invalid request")
		return nil, nil
	}

	rec := env.do(t, http.MethodPost, "/api/appointments/book", `{"patientId":0,"appointmentTime":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error != "validation failed" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	for _, field := range []string{"patientId", "doctorId", "appointmentTime"} {
		if _, ok := resp.Fields[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, resp.Fields)
		}
	}

	rec = env.do(t, http.MethodPost, "/api/appointments/book",
		`{"patientId":7,"doctorId":5,"appointmentTime":"next tuesday"}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "validation" {
		t.Fatalf("expected validation error for a bad date, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/appointments/book", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestCancelCompletePrescription(t *testing.T) {
	env := newTestEnv(t)
	completed := &appointment.Appointment{ID: 1, Status: appointment.StatusCompleted}
	env.appts.complete = func(id int64) (*appointment.Appointment, error) { return completed, nil }
	env.appts.prescribe = func(id int64, text string) (*appointment.Appointment, error) {
		withNotes := *completed
		withNotes.Notes = text
		return &withNotes, nil
	}
	env.appts.cancel = func(id int64) (*appointment.Appointment, error) {
		return nil, apperr.InvalidTransition("appointment %d cannot be cancelled: status is COMPLETED", id)
	}

	rec := env.do(t, http.MethodPost, "/api/appointments/1/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/appointments/1/prescription", `{"prescription":"Amoxicillin 500mg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("prescription: expected 200, got %d", rec.Code)
	}
	var msg MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Appointment == nil || msg.Appointment.Notes != "Amoxicillin 500mg" {
		t.Fatalf("unexpected response %+v", msg)
	}

	rec = env.do(t, http.MethodPost, "/api/appointments/cancel", `{"appointmentId":1}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_transition" {
		t.Fatalf("cancel: expected 400 invalid_transition, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/appointments/abc/complete", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non numeric id, got %d", rec.Code)
	}
}

func TestPrescription_InvalidStateIs400(t *testing.T) {
	env := newTestEnv(t)
	env.appts.prescribe = func(id int64, _ string) (*appointment.Appointment, error) {
		return nil, apperr.InvalidState("appointment %d is SCHEDULED", id)
	}

	rec := env.do(t, http.MethodPost, "/api/appointments/3/prescription", `{"prescription":"rest"}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_state" {
		t.Fatalf("expected 400 invalid_state, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListings(t *testing.T) {
	env := newTestEnv(t)
	env.appts.list = []appointment.Appointment{
		{ID: 2, AppointmentTime: bookedTime.Add(time.Hour), Status: appointment.StatusScheduled},
		{ID: 1, AppointmentTime: bookedTime, Status: appointment.StatusCancelled},
	}

	for _, path := range []string{"/api/appointments/patient/7", "/api/appointments/doctor/5"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		var list []AppointmentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 2 || list[0].ID != 2 {
			t.Fatalf("%s: order not preserved: %+v", path, list)
		}
	}

	env.appts.list, env.appts.listErr = nil, apperr.NotFound("patient 9 not found")
	rec := env.do(t, http.MethodGet, "/api/appointments/patient/9", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown patient, got %d", rec.Code)
	}
}

func TestAddSlot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/doctors/5/slots", `{"availableTime":"2030-02-01T09:00:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.slots.added) != 1 || !env.slots.added[0].Equal(time.Date(2030, 2, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected slot times %v", env.slots.added)
	}

	env.slots.addErr = apperr.Conflict("doctor 5 already has a slot at 2030-02-01T09:00:00Z")
	rec = env.do(t, http.MethodPost, "/api/doctors/5/slots", `{"availableTime":"2030-02-01T09:00:00"}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "conflict" {
		t.Fatalf("expected 400 conflict, got %d %s", rec.Code, rec.Body.String())
	}

	env.slots.addErr = apperr.NotFound("doctor 404 not found")
	rec = env.do(t, http.MethodPost, "/api/doctors/404/slots", `{"availableTime":"2030-02-01T09:00:00"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown doctor, got %d", rec.Code)
	}
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.slots.upcoming = []availability.Slot{
		{ID: 1, DoctorID: 5, AvailableTime: bookedTime},
		{ID: 2, DoctorID: 5, AvailableTime: bookedTime.Add(time.Hour)},
	}

	rec := env.do(t, http.MethodGet, "/api/doctors/5/availability", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []SlotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || !list[0].AvailableTime.Before(list[1].AvailableTime) {
		t.Fatalf("unexpected slots %+v", list)
	}

	env.slots.listErr = apperr.NotFound("doctor 404 not found")
	rec = env.do(t, http.MethodGet, "/api/doctors/404/availability", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDoctors(t *testing.T) {
	env := newTestEnv(t)
	env.dir.page = &identity.DoctorPage{
		Doctors:    []identity.Doctor{*env.dir.doctors[5]},
		Page:       1,
		Size:       5,
		TotalItems: 6,
		TotalPages: 2,
	}

	rec := env.do(t, http.MethodGet, "/api/doctors?specialization=cardio&page=1&size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env.dir.spec != "cardio" || env.dir.pageNo != 1 || env.dir.size != 5 {
		t.Fatalf("query not forwarded: %q %d %d", env.dir.spec, env.dir.pageNo, env.dir.size)
	}
	var page DoctorPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Doctors) != 1 || page.TotalItems != 6 {
		t.Fatalf("unexpected page %+v", page)
	}

	rec = env.do(t, http.MethodGet, "/api/doctors?page=first", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad page, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/doctors/5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/doctors/6", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMedicalRecords(t *testing.T) {
	env := newTestEnv(t)
	env.appts.list = []appointment.Appointment{{ID: 1, Status: appointment.StatusCompleted, Notes: "Vitamin D"}}

	rec := env.do(t, http.MethodPut, "/api/medical-records/patient/7/medical-history", `{"medicalHistory":"asthma"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/medical-records/patient/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp MedicalRecordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Patient.MedicalHistory != "asthma" || len(resp.Records) != 1 || resp.Records[0].Notes != "Vitamin D" {
		t.Fatalf("unexpected records %+v", resp)
	}

	rec = env.do(t, http.MethodGet, "/api/medical-records/patient/99", "")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "not_found" {
		t.Fatalf("expected 400 not_found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestParseTime(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2030-01-01T10:00:00Z", bookedTime},
		{"2030-01-01T15:30:00+05:30", bookedTime},
		{"2030-01-01T15:30:00", bookedTime},
		{"2030-01-01T15:30", bookedTime},
	}
	for _, tc := range cases {
		got, err := parseTime(tc.raw, kolkata)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%s: expected %s, got %s", tc.raw, tc.want, got)
		}
	}

	if _, err := parseTime("01/01/2030", kolkata); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	cases := []struct {
		name     string
		pg       Pinger
		redis    Pinger
		status   int
		overall  string
		hasRedis bool
	}{
		{"all up", up, up, http.StatusOK, "ok", true},
		{"redis down", up, down, http.StatusOK, "degraded", true},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error", true},
		{"local lock", up, nil, http.StatusOK, "ok", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.pg, tc.redis, "test", "v1")
			router := NewRouter(RouterConfig{Health: h, Logger: zerolog.Nop()})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var resp ReadinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tc.overall {
				t.Fatalf("expected %s, got %s", tc.overall, resp.Status)
			}
			if _, ok := resp.Dependencies["redis"]; ok != tc.hasRedis {
				t.Fatalf("unexpected dependencies %v", resp.Dependencies)
			}
		})
	}
}
