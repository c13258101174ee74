package api

import (
	"net/http"
	"time"
)

func addSlotHandler(slots SlotService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		var req AddSlotRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		at, err := parseTime(req.AvailableTime, loc)
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		if _, err := slots.AddAvailableSlot(r.Context(), doctorID, at); err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "Slot added successfully"})
	}
}

func availabilityHandler(slots SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		list, err := slots.UpcomingSlots(r.Context(), doctorID)
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toSlotList(list))
	}
}

func searchDoctorsHandler(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r, "page", 0)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}
		size, err := queryInt(r, "size", 0)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		result, err := dir.SearchDoctors(r.Context(), r.URL.Query().Get("specialization"), page, size)
		if err != nil {
			writeDomainError(w, r, err, http.StatusBadRequest)
			return
		}

		resp := DoctorPageResponse{
			Doctors:     make([]DoctorResponse, 0, len(result.Doctors)),
			Page:        result.Page,
			Size:        result.Size,
			TotalItems:  result.TotalItems,
			TotalPages:  result.TotalPages,
			HasNext:     result.HasNext,
			HasPrevious: result.HasPrevious,
		}
		for _, d := range result.Doctors {
			resp.Doctors = append(resp.Doctors, toDoctorResponse(d))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		doc, err := dir.FindDoctor(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err, http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(*doc))
	}
}
