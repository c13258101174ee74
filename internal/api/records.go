package api

import (
	"net/http"
)

func medicalRecordsHandler(dir Directory, svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		patient, err := dir.FindPatient(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		records, err := svc.PatientMedicalRecords(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, MedicalRecordsResponse{
			Patient: toPatientResponse(*patient),
			Records: toAppointmentList(records),
		})
	}
}

func updateMedicalHistoryHandler(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		var req MedicalHistoryRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		patient, err := dir.UpdateMedicalHistory(r.Context(), id, req.MedicalHistory)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(*patient))
	}
}
